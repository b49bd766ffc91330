package ldapstore

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the connection and layout settings of a directory subtree.
type Config struct {
	URL          string `yaml:"url"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	// BaseDN is the parent of every managed entry.
	BaseDN string `yaml:"base_dn"`
	// ObjectClasses are written on insert and required by every search.
	ObjectClasses []string `yaml:"object_classes"`
	// NamingAttribute is the attribute whose value forms the entry's RDN.
	NamingAttribute string `yaml:"naming_attribute"`
}

// DefaultConfig returns settings for a local directory holding person entries.
func DefaultConfig() Config {
	return Config{
		URL:             "ldap://localhost:389",
		BaseDN:          "dc=example,dc=com",
		ObjectClasses:   []string{"person"},
		NamingAttribute: "cn",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required.Error("is required"), validation.By(ldapURL)),
		validation.Field(&c.BaseDN, validation.Required.Error("is required")),
		validation.Field(&c.ObjectClasses, validation.Required.Error("needs at least one object class")),
		validation.Field(&c.NamingAttribute, validation.Required.Error("is required")),
	)
}

func ldapURL(value any) error {
	s, _ := value.(string)
	for _, scheme := range []string{"ldap://", "ldaps://", "ldapi://"} {
		if strings.HasPrefix(s, scheme) {
			return nil
		}
	}
	return validation.NewError("validation_ldap_url", "must use the ldap, ldaps or ldapi scheme")
}
