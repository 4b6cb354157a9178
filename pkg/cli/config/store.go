package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/infra/repository"
)

// Store selects and configures the run persistence backend
type Store struct {
	Backend             string
	FirestoreProjectID  string
	FirestoreDatabaseID string
	FirestoreCollection string
}

// Flags returns CLI flags for run store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Run store backend (memory, firestore)",
			Value:       "memory",
			Destination: &c.Backend,
			Sources:     cli.EnvVars("DOCSHIP_STORE"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID for the Firestore run store",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("DOCSHIP_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("DOCSHIP_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding run records",
			Value:       "runs",
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("DOCSHIP_FIRESTORE_COLLECTION"),
		},
	}
}

// Build creates the configured run store. The returned closer is nil for
// backends without a connection to release.
func (c *Store) Build(ctx context.Context) (interfaces.RunRepository, func() error, error) {
	switch c.Backend {
	case "memory":
		return repository.NewMemory(), nil, nil
	case "firestore":
		if c.FirestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required for the firestore store")
		}
		store, err := repository.NewFirestore(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.FirestoreCollection)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, goerr.New("unknown run store backend", goerr.V("backend", c.Backend))
	}
}
