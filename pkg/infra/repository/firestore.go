package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mkurata/docship/pkg/domain/model"
)

// Firestore persists run records in a Firestore collection. One document per
// run, keyed by run id.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore creates a Firestore-backed run store
func NewFirestore(ctx context.Context, projectID, databaseID, collection string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	return &Firestore{client: client, collection: collection}, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

// Save upserts the run document
func (f *Firestore) Save(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		return goerr.New("run id must not be empty")
	}
	if _, err := f.client.Collection(f.collection).Doc(run.ID).Set(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to save run", goerr.V("run_id", run.ID))
	}
	return nil
}

// Get returns the run with the given id
func (f *Firestore) Get(ctx context.Context, id string) (*model.Run, error) {
	doc, err := f.client.Collection(f.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRunNotFound, "no such run", goerr.V("run_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("run_id", id))
	}
	var run model.Run
	if err := doc.DataTo(&run); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run document", goerr.V("run_id", id))
	}
	return &run, nil
}

// List returns up to limit runs, most recently started first
func (f *Firestore) List(ctx context.Context, limit int) ([]*model.Run, error) {
	query := f.client.Collection(f.collection).OrderBy("StartedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var runs []*model.Run
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate runs")
		}
		var run model.Run
		if err := doc.DataTo(&run); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run document", goerr.V("doc", doc.Ref.ID))
		}
		runs = append(runs, &run)
	}
	return runs, nil
}
