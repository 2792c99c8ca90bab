package models

import "strings"

/*
GuestIdentity is what a guest told us about themselves for one gallery.
*/
type GuestIdentity struct {
	Name      string
	Email     string
	HasAccess bool
}

func (g GuestIdentity) HasEmail() bool {
	return strings.TrimSpace(g.Email) != ""
}

func (g GuestIdentity) HasName() bool {
	return strings.TrimSpace(g.Name) != ""
}

/*
GuestPass is stored in the guest's session. It remembers identities per
gallery ID so one browser can hold several galleries.
*/
type GuestPass struct {
	Galleries map[string]GuestIdentity
}

func (p *GuestPass) Identity(galleryID string) GuestIdentity {
	if p == nil || p.Galleries == nil {
		return GuestIdentity{}
	}

	return p.Galleries[galleryID]
}

func (p *GuestPass) SetIdentity(galleryID string, identity GuestIdentity) {
	if p.Galleries == nil {
		p.Galleries = map[string]GuestIdentity{}
	}

	p.Galleries[galleryID] = identity
}
