package app

import (
	httpMW "github.com/yungbote/lookbook-backend/internal/http/middleware"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger) (Middleware, error) {
	log.Info("Wiring middleware...")
	auth, err := httpMW.NewAuthMiddleware(log)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{Auth: auth}, nil
}
