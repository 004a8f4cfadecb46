package matrix

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Namespace is one exclusive-or-shared regex claim in a registration.
type Namespace struct {
	Exclusive bool   `yaml:"exclusive"`
	Regex     string `yaml:"regex"`
}

// Namespaces groups the user, alias and room claims of an appservice.
type Namespaces struct {
	Users   []Namespace `yaml:"users"`
	Aliases []Namespace `yaml:"aliases"`
	Rooms   []Namespace `yaml:"rooms"`
}

// Registration is the appservice registration file a homeserver loads.
type Registration struct {
	ID              string     `yaml:"id"`
	URL             string     `yaml:"url"`
	ASToken         string     `yaml:"as_token"`
	HSToken         string     `yaml:"hs_token"`
	SenderLocalpart string     `yaml:"sender_localpart"`
	RateLimited     bool       `yaml:"rate_limited"`
	Namespaces      Namespaces `yaml:"namespaces"`
}

// NewRegistration claims every user whose localpart starts with
// puppetPrefix on serverName, exclusively.
func NewRegistration(id, listenerURL, asToken, hsToken, senderLocalpart, puppetPrefix, serverName string) *Registration {
	return &Registration{
		ID:              id,
		URL:             listenerURL,
		ASToken:         asToken,
		HSToken:         hsToken,
		SenderLocalpart: senderLocalpart,
		Namespaces: Namespaces{
			Users: []Namespace{{
				Exclusive: true,
				Regex:     PuppetRegex(puppetPrefix, serverName),
			}},
			Aliases: []Namespace{},
			Rooms:   []Namespace{},
		},
	}
}

// PuppetRegex matches full user ids of puppets on serverName.
func PuppetRegex(puppetPrefix, serverName string) string {
	return fmt.Sprintf("@%s.*:%s", regexp.QuoteMeta(puppetPrefix), regexp.QuoteMeta(serverName))
}

// Encode renders the registration as YAML.
func (r *Registration) Encode() ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}
	return out, nil
}

// DecodeRegistration parses a registration file.
func DecodeRegistration(data []byte) (*Registration, error) {
	var r Registration
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return &r, nil
}
