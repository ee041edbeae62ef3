package session

import (
	"strconv"
	"strings"
)

// Account identifies the remote user a session acts as.
type Account struct {
	Host string
	Port int
	Zone string
	User string

	// HomeDirectory overrides the conventional /<zone>/home/<user>.
	HomeDirectory string
}

// Address returns host:port for dialing.
func (a Account) Address() string {
	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Home returns the user's home collection.
func (a Account) Home() string {
	if a.HomeDirectory != "" {
		return a.HomeDirectory
	}
	return "/" + a.Zone + "/home/" + a.User
}

// Server variants reported through ServerProperties.Variant.
const (
	VariantIRODS  = "irods"
	VariantEIRODS = "eirods"
)

// ServerProperties describes the server a session is connected to.
type ServerProperties struct {
	ReleaseVersion string
	APIVersion     string
	Zone           string

	// Variant is VariantEIRODS for servers whose release string starts
	// with "erods", VariantIRODS otherwise.
	Variant string

	// Major is the leading number of the release, 0 when unparseable.
	Major int
}

// NewServerProperties derives Variant and Major from the release string,
// e.g. "rods4.2.11" or "erods3.0".
func NewServerProperties(release, api, zone string) ServerProperties {
	p := ServerProperties{
		ReleaseVersion: release,
		APIVersion:     api,
		Zone:           zone,
		Variant:        VariantIRODS,
	}

	rest := release
	switch {
	case strings.HasPrefix(rest, "erods"):
		p.Variant = VariantEIRODS
		rest = strings.TrimPrefix(rest, "erods")
	case strings.HasPrefix(rest, "rods"):
		rest = strings.TrimPrefix(rest, "rods")
	}

	if major, _, _ := strings.Cut(rest, "."); major != "" {
		if n, err := strconv.Atoi(major); err == nil {
			p.Major = n
		}
	}
	return p
}

// UsesResourceHierarchy reports whether special collection descriptors
// sent to this server must carry the resource hierarchy field.
func (p ServerProperties) UsesResourceHierarchy() bool {
	return p.Variant == VariantEIRODS || p.Major >= 4
}
