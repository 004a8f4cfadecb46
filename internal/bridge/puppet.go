package bridge

import (
	"strings"

	"github.com/l5yth/potato-mesh/internal/models"
)

// PuppetPrefix namespaces bridge-owned Matrix accounts.
const PuppetPrefix = "potato_"

// Localpart maps a mesh node id such as "!deadbeef" to "potato_deadbeef".
func Localpart(nodeID string) string {
	return PuppetPrefix + strings.TrimLeft(nodeID, "!")
}

// UserID builds a full Matrix user id from a localpart.
func UserID(localpart, serverName string) string {
	return "@" + localpart + ":" + serverName
}

// DisplayName renders "Long (Short)", or the long name alone when the short
// name is blank or repeats it.
func DisplayName(node *models.Node) string {
	if node.ShortName == nil {
		return node.LongName
	}
	short := strings.TrimSpace(*node.ShortName)
	if short == "" || short == node.LongName {
		return node.LongName
	}
	return node.LongName + " (" + short + ")"
}
