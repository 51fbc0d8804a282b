package libmysql

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// clientAuthenticationPlugin is the plugin type for client-side
// authentication plugins (MYSQL_CLIENT_AUTHENTICATION_PLUGIN).
const clientAuthenticationPlugin int32 = 2

const webauthnPlugin = "authentication_webauthn_client"
const webauthnCallbackOption = "plugin_authentication_webauthn_client_messages_callback"

// registerAuthCallback wires Config.AuthMessageCallback into the webauthn
// authentication plugin so interactive prompts ("touch your security key")
// reach the application instead of being printed to stderr.
func (c *Conn) registerAuthCallback() {
	name := cstrz(webauthnPlugin)
	plugin := mysqlFindPlugin(c.mysql, name, clientAuthenticationPlugin)
	runtime.KeepAlive(name)
	if plugin == 0 {
		// Plugin not available in this client library build.
		return
	}

	callback := c.cfg.AuthMessageCallback
	trampoline := purego.NewCallback(func(msg uintptr) uintptr {
		if msg != 0 {
			callback(goString(msg))
		}
		return 0
	})
	c.authTrampoline = trampoline

	option := cstrz(webauthnCallbackOption)
	mysqlPluginOptions(plugin, option, unsafe.Pointer(trampoline))
	runtime.KeepAlive(option)
}
