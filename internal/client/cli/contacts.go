package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/contactbook/internal/client/models"
	"github.com/dmitrijs2005/contactbook/internal/client/photo"
	"github.com/dmitrijs2005/contactbook/internal/client/services"
	"github.com/dmitrijs2005/contactbook/internal/client/validation"
)

// loadPhoto is a test seam for photo.Load.
var loadPhoto = photo.Load

// List prints the active user's contacts, newest first.
func (a *App) List(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	list := a.contacts.List()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No contacts yet. Use 'add' to create one.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL\tADDRESS")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Phone, c.Email, shorten(c.Location.Address, 40))
	}
	return tw.Flush()
}

// Show prints one contact in full.
func (a *App) Show(ctx context.Context, id string) error {
	c, err := a.lookup(id, "Enter contact id to show")
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", c.ID)
	fmt.Fprintf(a.out, "Name:     %s\n", c.Name)
	fmt.Fprintf(a.out, "Phone:    %s\n", c.Phone)
	fmt.Fprintf(a.out, "Email:    %s\n", c.Email)
	fmt.Fprintf(a.out, "Location: %s (%.6f, %.6f)\n", c.Location.Address, c.Location.Lat, c.Location.Lng)
	fmt.Fprintf(a.out, "Map:      %s\n", mapURL(c.Location))
	if c.PhotoDataURL != "" {
		fmt.Fprintf(a.out, "Photo:    %s, %d bytes encoded\n", photo.MediaTypeOf(c.PhotoDataURL), len(c.PhotoDataURL))
	}
	return nil
}

// Add walks through the contact form and creates the contact.
func (a *App) Add(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	name, err := getSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	phone, err := getSimpleText(a.reader, "Phone (digits only)", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	loc, err := a.pickLocation(ctx, nil)
	if err != nil {
		return err
	}
	pic, err := a.askPhoto("Photo file path")
	if err != nil {
		return err
	}

	form := contactForm(name, phone, email, loc, pic)
	if errs := validation.ValidateContact(form); !errs.Valid() {
		return formError(errs)
	}

	in := models.ContactInput{
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Email:        strings.TrimSpace(email),
		PhotoDataURL: pic.DataURL,
		Location:     *loc,
	}

	var created models.Contact
	err = a.busy(func() bool { return a.contacts.State().Loading }, func() error {
		var err error
		created, err = a.contacts.Create(ctx, in)
		return err
	})
	if err != nil {
		return storeError(err, a.contacts.State().Error)
	}

	fmt.Fprintf(a.out, "Contact %s added (id %s)\n", created.Name, created.ID)
	return nil
}

// Edit pre-fills the form with the stored contact. Pressing Enter keeps a
// field; the photo is only replaced when a new file is given.
func (a *App) Edit(ctx context.Context, id string) error {
	cur, err := a.lookup(id, "Enter contact id to edit")
	if err != nil {
		return err
	}

	name, err := getWithDefault(a.reader, "Name", cur.Name, a.out)
	if err != nil {
		return err
	}
	phone, err := getWithDefault(a.reader, "Phone (digits only)", cur.Phone, a.out)
	if err != nil {
		return err
	}
	email, err := getWithDefault(a.reader, "Email", cur.Email, a.out)
	if err != nil {
		return err
	}

	loc := &cur.Location
	change, err := confirm(a.reader, fmt.Sprintf("Change location (%s)?", shorten(cur.Location.Address, 40)), a.out)
	if err != nil {
		return err
	}
	if change {
		if loc, err = a.pickLocation(ctx, &cur.Location); err != nil {
			return err
		}
	}

	pic, err := a.askPhoto("New photo file path (Enter keeps current)")
	if err != nil {
		return err
	}

	errs := validation.ValidateContact(contactForm(name, phone, email, loc, pic))
	if pic == nil {
		delete(errs, "photo")
	}
	if !errs.Valid() {
		return formError(errs)
	}

	patch := buildPatch(cur, strings.TrimSpace(name), strings.TrimSpace(phone), strings.TrimSpace(email), *loc, pic)
	if patch.IsEmpty() {
		fmt.Fprintln(a.out, "Nothing changed.")
		return nil
	}

	err = a.busy(func() bool { return a.contacts.State().Loading }, func() error {
		_, err := a.contacts.Update(ctx, cur.ID, patch)
		return err
	})
	if err != nil {
		return storeError(err, a.contacts.State().Error)
	}

	fmt.Fprintln(a.out, "Contact updated.")
	return nil
}

// Delete removes a contact after confirmation.
func (a *App) Delete(ctx context.Context, id string) error {
	c, err := a.lookup(id, "Enter contact id to delete")
	if err != nil {
		return err
	}

	ok, err := confirm(a.reader, fmt.Sprintf("Delete contact %s?", c.Name), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	err = a.busy(func() bool { return a.contacts.State().Loading }, func() error {
		return a.contacts.Remove(ctx, c.ID)
	})
	if err != nil {
		return storeError(err, a.contacts.State().Error)
	}

	fmt.Fprintln(a.out, "Contact deleted.")
	return nil
}

// lookup resolves id, prompting for it when empty.
func (a *App) lookup(id, prompt string) (models.Contact, error) {
	if !a.isLoggedIn() {
		return models.Contact{}, errNotLoggedIn
	}
	if id == "" {
		var err error
		if id, err = getSimpleText(a.reader, prompt, a.out); err != nil {
			return models.Contact{}, err
		}
	}
	c, ok := a.contacts.FindByID(strings.TrimSpace(id))
	if !ok {
		return models.Contact{}, services.ErrContactNotFound
	}
	return c, nil
}

// askPhoto returns nil when the user leaves the path empty.
func (a *App) askPhoto(prompt string) (*photo.Photo, error) {
	path, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	p, err := loadPhoto(path, validation.MaxPhotoSize)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func contactForm(name, phone, email string, loc *models.Location, pic *photo.Photo) validation.ContactForm {
	f := validation.ContactForm{Name: name, Phone: phone, Email: email}
	if loc != nil {
		f.Address = loc.Address
		f.Lat = &loc.Lat
		f.Lng = &loc.Lng
	}
	if pic != nil {
		f.Photo = &validation.Photo{MediaType: pic.MediaType, Size: pic.Size}
	}
	return f
}

func buildPatch(cur models.Contact, name, phone, email string, loc models.Location, pic *photo.Photo) models.ContactPatch {
	var p models.ContactPatch
	if name != cur.Name {
		p.Name = &name
	}
	if phone != cur.Phone {
		p.Phone = &phone
	}
	if email != cur.Email {
		p.Email = &email
	}
	if loc != cur.Location {
		p.Location = &loc
	}
	if pic != nil {
		p.PhotoDataURL = &pic.DataURL
	}
	return p
}

// mapURL links to the location on Google Maps.
func mapURL(loc models.Location) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(loc.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(loc.Lng, 'f', -1, 64)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
