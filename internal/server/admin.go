package server

import (
	"net/http"
	"strings"

	"github.com/jpalmerr/funnel/internal/store"
)

// formField is one editable input of the customization form.
type formField struct {
	Name      string
	Label     string
	Group     string
	Multiline bool
	Value     string
}

type fieldSpec struct {
	name      string
	label     string
	group     string
	multiline bool
	ptr       func(*store.Customization) *string
}

// fieldSpecs lists the form inputs in display order. Names match the JSON
// document keys.
var fieldSpecs = []fieldSpec{
	{"headline", "Headline", "text", false, func(c *store.Customization) *string { return &c.Headline }},
	{"videoPlaceholderText", "Video placeholder", "text", false, func(c *store.Customization) *string { return &c.VideoPlaceholderText }},
	{"audioWarningTitle", "Audio warning title", "text", false, func(c *store.Customization) *string { return &c.AudioWarningTitle }},
	{"audioWarningSubtitle", "Audio warning subtitle", "text", false, func(c *store.Customization) *string { return &c.AudioWarningSubtitle }},
	{"videoWarningTitle", "Video warning title", "text", false, func(c *store.Customization) *string { return &c.VideoWarningTitle }},
	{"videoWarningSubtitle", "Video warning subtitle", "text", false, func(c *store.Customization) *string { return &c.VideoWarningSubtitle }},
	{"guaranteeTitle", "Guarantee title", "text", false, func(c *store.Customization) *string { return &c.GuaranteeTitle }},
	{"guaranteeSubtitle", "Guarantee subtitle", "text", false, func(c *store.Customization) *string { return &c.GuaranteeSubtitle }},
	{"guaranteeDescription", "Guarantee description", "text", true, func(c *store.Customization) *string { return &c.GuaranteeDescription }},
	{"mainOfferImage", "Main offer image", "offer", false, func(c *store.Customization) *string { return &c.MainOfferImage }},
	{"mainOfferCheckoutUrl", "Main offer checkout URL", "offer", false, func(c *store.Customization) *string { return &c.MainOfferCheckoutURL }},
	{"offer1Image", "Offer 1 image", "offer", false, func(c *store.Customization) *string { return &c.Offer1Image }},
	{"offer1CheckoutUrl", "Offer 1 checkout URL", "offer", false, func(c *store.Customization) *string { return &c.Offer1CheckoutURL }},
	{"offer2Image", "Offer 2 image", "offer", false, func(c *store.Customization) *string { return &c.Offer2Image }},
	{"offer2CheckoutUrl", "Offer 2 checkout URL", "offer", false, func(c *store.Customization) *string { return &c.Offer2CheckoutURL }},
}

func formFields(c store.Customization) []formField {
	fields := make([]formField, 0, len(fieldSpecs))
	for _, f := range fieldSpecs {
		fields = append(fields, formField{
			Name:      f.name,
			Label:     f.label,
			Group:     f.group,
			Multiline: f.multiline,
			Value:     *f.ptr(&c),
		})
	}
	return fields
}

// customizationFromForm applies the submitted fields on top of base. Fields
// missing from the form keep their current value.
func customizationFromForm(r *http.Request, base store.Customization) store.Customization {
	c := base
	for _, f := range fieldSpecs {
		if _, ok := r.PostForm[f.name]; !ok {
			continue
		}
		*f.ptr(&c) = strings.TrimSpace(r.PostForm.Get(f.name))
	}
	return c
}

func (s *Server) handleAdminForm(w http.ResponseWriter, r *http.Request) {
	var notice string
	switch {
	case r.URL.Query().Has("saved"):
		notice = "Changes saved."
	case r.URL.Query().Has("reset"):
		notice = "Defaults restored."
	}
	s.serveAdminForm(w, r, http.StatusOK, s.loadContent(r.Context()), notice, "")
}

func (s *Server) serveAdminForm(w http.ResponseWriter, r *http.Request, status int, c store.Customization, notice, errMsg string) {
	set := s.paramStore(r).ReadPersisted()
	data := s.newPageData(pageAdmin, set)
	data.Fields = formFields(c)
	data.Notice = notice
	data.Error = errMsg

	m, err := s.menu(r, set)
	if err != nil {
		s.fail(w, pageAdmin, err)
		return
	}
	data.Menu = m

	s.metrics.PageViews.WithLabelValues(pageAdmin).Inc()
	s.render(w, status, pageAdmin, data)
}

func (s *Server) handleAdminSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	c := customizationFromForm(r, s.loadContent(r.Context()))
	if err := c.Validate(); err != nil {
		s.serveAdminForm(w, r, http.StatusUnprocessableEntity, c, "", err.Error())
		return
	}
	if err := s.content.Save(r.Context(), c); err != nil {
		s.logger.Error("failed to save customization data", "error", err)
		http.Error(w, "failed to save customization", http.StatusInternalServerError)
		return
	}

	s.logger.Info("customization saved")
	http.Redirect(w, r, "/admin/customization?saved=1", http.StatusSeeOther)
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	if err := s.content.Reset(r.Context()); err != nil {
		s.logger.Error("failed to reset customization data", "error", err)
		http.Error(w, "failed to reset customization", http.StatusInternalServerError)
		return
	}

	s.logger.Info("customization reset to defaults")
	http.Redirect(w, r, "/admin/customization?reset=1", http.StatusSeeOther)
}
