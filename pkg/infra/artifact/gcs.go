package artifact

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/model"
)

// GCSStore archives run step logs to a Cloud Storage bucket, one object per
// run under runs/<id>.log. Archival happens after the run is terminal, so a
// missing object only ever means the run never finished.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a Cloud Storage backed log store
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// PutRunLog writes the concatenated step logs for the run
func (s *GCSStore) PutRunLog(ctx context.Context, run *model.Run) error {
	obj := s.client.Bucket(s.bucket).Object(fmt.Sprintf("runs/%s.log", run.ID))
	w := obj.NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"

	for _, step := range run.Steps {
		fmt.Fprintf(w, "=== %s (%s, %s)\n", step.Name, step.Outcome, step.Duration)
		fmt.Fprint(w, step.Log)
		if len(step.Log) > 0 && step.Log[len(step.Log)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	if run.Error != "" {
		fmt.Fprintf(w, "=== error\n%s\n", run.Error)
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload run log",
			goerr.V("run_id", run.ID),
			goerr.V("bucket", s.bucket),
		)
	}
	return nil
}
