package handler

import (
	"github.com/gofiber/websocket/v2"
)

// DisplayWS streams status payloads to one display screen. The kiosk
// token middleware has already resolved the tenant before the upgrade.
func DisplayWS(c *websocket.Conn) {
	tenantID := c.Locals("tenant_id").(int64)

	Hubs.Attach(tenantID, c)
	defer Hubs.Detach(tenantID, c)

	// Displays never send anything meaningful; the read loop just
	// notices the disconnect.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
