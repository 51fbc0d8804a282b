package libmysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

// Config holds all connection parameters. The zero value plus a Host and
// User is enough for a plain TCP connection with the library defaults.
type Config struct {
	Host       string
	Port       uint32
	UnixSocket string
	User       string
	Password   string
	Password2  string // multi-factor authentication, second factor
	Password3  string // multi-factor authentication, third factor
	Database   string

	// ClientFlags is OR-ed into the capability flags passed to the server.
	// ClientMultiStatements and friends are declared in types.go.
	ClientFlags uint64

	Charset    string
	UseUnicode bool
	Collation  string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	Compress         bool
	LocalInfile      bool
	LoadDataLocalDir string

	// TLS material. SSLMode defaults to preferred when unset.
	SSLKey      string
	SSLCert     string
	SSLCA       string
	SSLCAPath   string
	SSLCipher   string
	SSLMode     string
	TLSVersions []string

	AuthPlugin          string
	PluginDir           string
	EnableCleartext     bool
	GetServerPublicKey  bool
	ServerPublicKeyPath string

	// ConnAttrs are sent as performance_schema connection attributes.
	ConnAttrs map[string]string

	// Buffered selects mysql_store_result over mysql_use_result.
	Buffered bool

	// Raw disables value conversion; cells come back as []byte, or as
	// string when RawAsString is also set.
	Raw         bool
	RawAsString bool

	// StrFallback converts otherwise unsupported parameter types through
	// their string representation instead of failing.
	StrFallback bool

	// AuthMessageCallback receives interactive messages from authentication
	// plugins such as webauthn prompts.
	AuthMessageCallback func(msg string)
}

// DefaultConfig returns a Config with the conventional defaults: TCP port
// 3306, utf8mb4, Unicode decoding and buffered results enabled.
func DefaultConfig() Config {
	return Config{
		Port:       3306,
		Charset:    "utf8mb4",
		UseUnicode: true,
		Buffered:   true,
	}
}

// LoadOptionFile merges the [client] and [mysql] groups of a MySQL option
// file (my.cnf) into cfg. Values already present in the file override the
// corresponding Config fields; unknown keys are ignored the way the client
// library ignores them.
func (cfg *Config) LoadOptionFile(path string, extraGroups ...string) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return fmt.Errorf("cannot read option file %s: %w", path, err)
	}

	groups := append([]string{"client", "mysql"}, extraGroups...)
	for _, group := range groups {
		section, err := f.GetSection(group)
		if err != nil {
			continue
		}
		if err := cfg.applyOptionGroup(section); err != nil {
			return fmt.Errorf("option file %s group [%s]: %w", path, group, err)
		}
	}
	return nil
}

func (cfg *Config) applyOptionGroup(section *ini.Section) error {
	for _, key := range section.Keys() {
		name := strings.ReplaceAll(key.Name(), "-", "_")
		value := key.Value()
		switch name {
		case "host":
			cfg.Host = value
		case "port":
			port, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid port %q", value)
			}
			cfg.Port = uint32(port)
		case "socket":
			cfg.UnixSocket = value
		case "user":
			cfg.User = value
		case "password":
			cfg.Password = value
		case "password1":
			cfg.Password = value
		case "password2":
			cfg.Password2 = value
		case "password3":
			cfg.Password3 = value
		case "database":
			cfg.Database = value
		case "default_character_set", "character_set":
			cfg.Charset = value
		case "connect_timeout":
			secs, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid connect_timeout %q", value)
			}
			cfg.ConnectTimeout = time.Duration(secs) * time.Second
		case "local_infile":
			cfg.LocalInfile = value == "" || value == "1" || strings.EqualFold(value, "on")
		case "load_data_local_dir":
			cfg.LoadDataLocalDir = value
		case "ssl_key":
			cfg.SSLKey = value
		case "ssl_cert":
			cfg.SSLCert = value
		case "ssl_ca":
			cfg.SSLCA = value
		case "ssl_capath":
			cfg.SSLCAPath = value
		case "ssl_cipher":
			cfg.SSLCipher = value
		case "ssl_mode":
			cfg.SSLMode = strings.ToUpper(value)
		case "tls_version", "tls_versions":
			cfg.TLSVersions = strings.Split(value, ",")
			for i := range cfg.TLSVersions {
				cfg.TLSVersions[i] = strings.TrimSpace(cfg.TLSVersions[i])
			}
		case "default_auth":
			cfg.AuthPlugin = value
		case "plugin_dir":
			cfg.PluginDir = value
		case "compress":
			cfg.Compress = true
		}
	}
	return nil
}

// address renders the endpoint for error messages.
func (cfg *Config) address() string {
	if cfg.UnixSocket != "" {
		return cfg.UnixSocket
	}
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
