package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/services"
)

const sessionKeyPhoneImport = "phone_import"

func init() {
	gob.Register([]services.PhoneUpdate{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// PutPhoneImport stores previewed MAC/PIN updates until they are confirmed.
func (sm *SessionManager) PutPhoneImport(ctx context.Context, updates []services.PhoneUpdate) {
	sm.Put(ctx, sessionKeyPhoneImport, updates)
}

// PopPhoneImport returns and removes the pending updates. It returns nil
// when no preview is stored.
func (sm *SessionManager) PopPhoneImport(ctx context.Context) []services.PhoneUpdate {
	updates, _ := sm.Pop(ctx, sessionKeyPhoneImport).([]services.PhoneUpdate)
	return updates
}
