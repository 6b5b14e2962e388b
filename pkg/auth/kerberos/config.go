package kerberos

import "os"

// Environment overrides.
const (
	EnvKeytab    = "HTTPGATE_KERBEROS_KEYTAB"
	EnvPrincipal = "HTTPGATE_KERBEROS_PRINCIPAL"
	EnvKrb5Conf  = "HTTPGATE_KERBEROS_KRB5CONF"
)

// DefaultKrb5Conf is used when neither the login configuration nor the
// environment names a krb5.conf.
const DefaultKrb5Conf = "/etc/krb5.conf"

// Config is the kerberos section of the login configuration.
type Config struct {
	// Krb5Conf is the path to krb5.conf.
	// Override: HTTPGATE_KERBEROS_KRB5CONF. Default: /etc/krb5.conf
	Krb5Conf string `yaml:"krb5_conf" json:"krb5_conf,omitempty"`

	// Realm applies to user names without an @REALM suffix.
	// Default: libdefaults.default_realm
	Realm string `yaml:"realm" json:"realm,omitempty"`

	// KeytabPath enables KDC verification together with ServicePrincipal.
	// Override: HTTPGATE_KERBEROS_KEYTAB
	KeytabPath string `yaml:"keytab_path" json:"keytab_path,omitempty"`

	// ServicePrincipal is the SPN whose key is in the keytab, e.g.
	// HTTP/gate.example.com.
	// Override: HTTPGATE_KERBEROS_PRINCIPAL
	ServicePrincipal string `yaml:"service_principal" json:"service_principal,omitempty"`
}

func resolveKeytabPath(configPath string) string {
	if env := os.Getenv(EnvKeytab); env != "" {
		return env
	}
	return configPath
}

func resolveServicePrincipal(configPrincipal string) string {
	if env := os.Getenv(EnvPrincipal); env != "" {
		return env
	}
	return configPrincipal
}

func resolveKrb5ConfPath(configPath string) string {
	if env := os.Getenv(EnvKrb5Conf); env != "" {
		return env
	}
	if configPath != "" {
		return configPath
	}
	return DefaultKrb5Conf
}
