package ldapstore

import (
	"github.com/go-ldap/ldap/v3"

	"github.com/goliatone/go-servicelayer/serviceerr"
)

// Dial connects to cfg.URL and binds as cfg.BindDN when one is configured.
// The caller owns the returned connection.
func Dial(cfg Config) (*ldap.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(cfg.URL)
	if err != nil {
		return nil, serviceerr.StoreError(err, "dial %s", cfg.URL)
	}

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, serviceerr.StoreError(err, "bind as %s", cfg.BindDN)
		}
	}

	return conn, nil
}
