package models

// Location is a geocoded point picked for a contact.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Contact belongs to exactly one user through the per-user contact map.
type Contact struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	PhotoDataURL string   `json:"photoDataUrl"`
	Location     Location `json:"location"`
}

// ContactInput carries every contact field except the id.
type ContactInput struct {
	Name         string
	Phone        string
	Email        string
	PhotoDataURL string
	Location     Location
}

// WithID builds the stored contact.
func (in ContactInput) WithID(id string) Contact {
	return Contact{
		ID:           id,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PhotoDataURL: in.PhotoDataURL,
		Location:     in.Location,
	}
}

// ContactPatch is a partial update. Nil fields keep their current value.
type ContactPatch struct {
	Name         *string
	Phone        *string
	Email        *string
	PhotoDataURL *string
	Location     *Location
}

// Apply returns c with the non-nil patch fields replaced. The id never changes.
func (p ContactPatch) Apply(c Contact) Contact {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.PhotoDataURL != nil {
		c.PhotoDataURL = *p.PhotoDataURL
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	return c
}

// IsEmpty reports whether the patch changes nothing.
func (p ContactPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.PhotoDataURL == nil && p.Location == nil
}

// ContactBook maps a user id to that user's contacts, newest first.
type ContactBook map[string][]Contact

// Clone copies the map and every list so the result can be mutated freely.
func (b ContactBook) Clone() ContactBook {
	out := make(ContactBook, len(b))
	for uid, list := range b {
		out[uid] = append([]Contact(nil), list...)
	}
	return out
}
