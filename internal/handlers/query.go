package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/l5yth/potato-mesh/internal/bridge"
)

// QueryUser answers the homeserver's user existence query. Puppets are
// created on demand by the forwarding loop, so any id in the puppet
// namespace on this server is claimed.
func (h *Handler) QueryUser(w http.ResponseWriter, r *http.Request) {
	userID, err := url.PathUnescape(chi.URLParam(r, "userID"))
	if err != nil || !h.ownsUser(userID) {
		h.Empty(w, http.StatusNotFound)
		return
	}
	h.Empty(w, http.StatusOK)
}

// QueryRoom answers room alias queries. The bridge never provisions aliases.
func (h *Handler) QueryRoom(w http.ResponseWriter, r *http.Request) {
	h.Empty(w, http.StatusNotFound)
}

func (h *Handler) ownsUser(userID string) bool {
	localpart, server, ok := strings.Cut(strings.TrimPrefix(userID, "@"), ":")
	if !ok || !strings.HasPrefix(userID, "@") || server != h.serverName {
		return false
	}
	return strings.HasPrefix(localpart, bridge.PuppetPrefix) && len(localpart) > len(bridge.PuppetPrefix)
}
