package ldapstore

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// escapeRDNValue escapes an attribute value for use in a distinguished name
// (RFC 4514, section 2.4).
func escapeRDNValue(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case strings.ContainsRune(`,+"\<>;=`, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '#' && i == 0:
			b.WriteString(`\#`)
		case r == ' ' && (i == 0 || i == len(v)-1):
			b.WriteString(`\ `)
		case r == 0:
			b.WriteString(`\00`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// buildDN joins attr=value and base.
func buildDN(attr, value, base string) string {
	rdn := attr + "=" + escapeRDNValue(value)
	if base == "" {
		return rdn
	}
	return rdn + "," + base
}

// isDN reports whether id parses as a distinguished name rather than a bare RDN value.
func isDN(id string) bool {
	if !strings.Contains(id, "=") {
		return false
	}
	_, err := ldap.ParseDN(id)
	return err == nil
}

// rdnValue returns the value of attr in the leading RDN of dn.
func rdnValue(dn, attr string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", err
	}
	if len(parsed.RDNs) == 0 {
		return "", fmt.Errorf("empty dn")
	}
	for _, atv := range parsed.RDNs[0].Attributes {
		if strings.EqualFold(atv.Type, attr) {
			return atv.Value, nil
		}
	}
	return "", fmt.Errorf("dn %q is not named by %s", dn, attr)
}
