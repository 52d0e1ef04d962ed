package main

import (
	"context"

	"go.uber.org/zap"

	platformauth "github.com/loomworks/agencydesk/platform/go/auth"
	"github.com/loomworks/agencydesk/platform/go/gcp"
)

// buildAuthResolver constructs the session resolver around the configured
// token verifier. The resolver itself never rejects; route groups decide.
func buildAuthResolver(ctx context.Context, cfg config, logger *zap.Logger) *platformauth.Resolver {
	var verify platformauth.VerifyFunc
	switch cfg.AuthProvider {
	case "firebase":
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx)
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
	case "hmac":
		if cfg.AuthHMACSecret == "" {
			logger.Fatal("AUTH_HMAC_SECRET required when AUTH_PROVIDER=hmac")
		}
		verify = platformauth.HMACTokenVerifier([]byte(cfg.AuthHMACSecret))
	case "dev":
		logger.Warn("using unsigned token verification; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
	}

	return platformauth.NewResolver(verify, nil)
}
