package db

import (
	"context"
	"fmt"

	"backend-nepaltrip/internal/config"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// ConnectFirebase initialises the app shared by the Firestore feed and the
// storage uploader. Without a credentials file the ambient Google
// credentials are used.
func ConnectFirebase(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	fbCfg := &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.FirebaseStorageBucket,
	}
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}
