package mailbox

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource reads a text file containing one or more delimited items and
// serves them as normalized messages. It satisfies Fetcher so the pipeline
// runs unchanged against file input.
type FileSource struct {
	path       string
	normalizer *Normalizer
}

// NewFileSource creates a file-backed message source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, normalizer: NewNormalizer()}
}

// ListNewMessages reads and splits the file. The filter's MaxResults cap
// applies; Lookback and To do not (files carry no reliable dates or
// addressing).
func (f *FileSource) ListNewMessages(ctx context.Context, filter ListFilter) ([]Message, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}

	msgs := f.normalizer.SplitBlob(string(data))

	now := time.Now().Format(time.RFC3339)
	for i := range msgs {
		if msgs[i].Date == "" {
			msgs[i].Date = now
		}
	}

	if filter.MaxResults > 0 && int64(len(msgs)) > filter.MaxResults {
		msgs = msgs[:filter.MaxResults]
	}

	return msgs, nil
}

var _ Fetcher = (*FileSource)(nil)
