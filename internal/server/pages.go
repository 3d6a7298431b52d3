package server

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/funnel/internal/store"
	"github.com/jpalmerr/funnel/params"
)

// Page names double as template names and metric labels.
const (
	pageHome     = "home"
	pagePresell  = "presell"
	pageUpsell   = "upsell"
	pageDownsell = "downsell"
	pageThankYou = "thankyou"
	pageAdmin    = "admin"
)

// sourceMenu marks links followed from the admin menu.
const sourceMenu = "hamburger_menu"

// offer is one of the checkout buttons on the home page.
type offer struct {
	key      string
	alt      string
	image    func(store.Customization) string
	checkout func(store.Customization) string
}

// offers lists the home page checkout buttons in display order.
var offers = []offer{
	{
		key:      "6-bottle",
		alt:      "6 bottle package",
		image:    func(c store.Customization) string { return c.MainOfferImage },
		checkout: func(c store.Customization) string { return c.MainOfferCheckoutURL },
	},
	{
		key:      "3-bottle",
		alt:      "3 bottle package",
		image:    func(c store.Customization) string { return c.Offer1Image },
		checkout: func(c store.Customization) string { return c.Offer1CheckoutURL },
	},
	{
		key:      "1-bottle",
		alt:      "1 bottle package",
		image:    func(c store.Customization) string { return c.Offer2Image },
		checkout: func(c store.Customization) string { return c.Offer2CheckoutURL },
	},
}

func findOffer(key string) (offer, bool) {
	for _, o := range offers {
		if o.key == key {
			return o, true
		}
	}
	return offer{}, false
}

// decision is the outcome of an accept or decline button on a post-purchase step.
type decision struct {
	target func(Config) string
	extra  []string
}

var decisions = map[string]map[string]decision{
	"upsell": {
		"accept": {
			target: func(c Config) string { return c.UpsellCheckout },
			extra:  []string{"upsell1", "accepted", "offer_type", "premium_package"},
		},
		"decline": {
			target: func(Config) string { return "/dw1" },
			extra:  []string{"upsell1", "declined"},
		},
	},
	"downsell": {
		"accept": {
			target: func(c Config) string { return c.DownsellCheckout },
			extra:  []string{"downsell1", "accepted", "offer_type", "basic_package"},
		},
		"decline": {
			target: func(Config) string { return "/thank-you" },
			extra:  []string{"downsell1", "declined"},
		},
	},
}

type offerView struct {
	Href  string
	Image string
	Alt   string
}

type menuLinks struct {
	Home     string
	Admin    string
	Presell  string
	Upsell   string
	Downsell string
}

type pageData struct {
	Title string
	Brand string
	Page  string
	Year  int
	Date  string
	Admin bool

	Content       store.Customization
	Offers        []offerView
	RevealDelayMs int64
	Links         map[string]string

	Params    params.Set
	ParamKeys []string
	Menu      menuLinks

	Fields []formField
	Notice string
	Error  string
}

func parsePages(assets fs.FS) (map[string]*template.Template, error) {
	names := []string{pageHome, pagePresell, pageUpsell, pageDownsell, pageThankYou, pageAdmin}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) newPageData(page string, set params.Set) pageData {
	now := s.now()
	return pageData{
		Title:     s.cfg.Title,
		Brand:     s.cfg.Title,
		Page:      page,
		Year:      now.Year(),
		Date:      now.Format("January 2, 2006"),
		Params:    set,
		ParamKeys: set.Compact().Keys(),
		Links:     map[string]string{},
	}
}

// link builds an address to base carrying set plus the extra pairs.
func (s *Server) link(r *http.Request, base string, set params.Set, extra ...string) (string, error) {
	return params.BuildAddress(base, s.origin(r), set.With(extra...))
}

// menu builds the admin menu links.
func (s *Server) menu(r *http.Request, set params.Set) (menuLinks, error) {
	var m menuLinks
	targets := []struct {
		dst  *string
		base string
	}{
		{&m.Home, "/admin"},
		{&m.Admin, "/admin/customization"},
		{&m.Presell, "/pr"},
		{&m.Upsell, "/up1"},
		{&m.Downsell, "/dw1"},
	}
	for _, t := range targets {
		href, err := s.link(r, t.base, set, "source", sourceMenu)
		if err != nil {
			return menuLinks{}, err
		}
		*t.dst = href
	}
	return m, nil
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, page string, err error) {
	s.logger.Error("failed to build page links", "page", page, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.serveHome(w, r, false)
}

func (s *Server) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	s.serveHome(w, r, true)
}

func (s *Server) serveHome(w http.ResponseWriter, r *http.Request, admin bool) {
	set := s.visit(r)
	content := s.loadContent(r.Context())

	data := s.newPageData(pageHome, set)
	data.Admin = admin
	data.Content = content
	data.RevealDelayMs = s.cfg.RevealDelay.Milliseconds()

	// checkout links go through /checkout so the click timestamp is taken
	// when the visitor clicks, not when the page rendered
	for _, o := range offers {
		href, err := s.link(r, "/checkout/"+o.key, set)
		if err != nil {
			s.fail(w, pageHome, err)
			return
		}
		data.Offers = append(data.Offers, offerView{Href: href, Image: o.image(content), Alt: o.alt})
	}

	if admin {
		m, err := s.menu(r, set)
		if err != nil {
			s.fail(w, pageHome, err)
			return
		}
		data.Menu = m
	}

	s.metrics.PageViews.WithLabelValues(pageHome).Inc()
	s.render(w, http.StatusOK, pageHome, data)
}

func (s *Server) handlePresell(w http.ResponseWriter, r *http.Request) {
	set := s.visit(r)
	data := s.newPageData(pagePresell, set)

	next, err := s.link(r, "/", set, "source", "presell_news", "presell_completed", "true")
	if err != nil {
		s.fail(w, pagePresell, err)
		return
	}
	data.Links["next"] = next

	s.metrics.PageViews.WithLabelValues(pagePresell).Inc()
	s.render(w, http.StatusOK, pagePresell, data)
}

func (s *Server) handleUpsell(w http.ResponseWriter, r *http.Request) {
	s.serveStep(w, r, pageUpsell, "upsell")
}

func (s *Server) handleDownsell(w http.ResponseWriter, r *http.Request) {
	s.serveStep(w, r, pageDownsell, "downsell")
}

func (s *Server) serveStep(w http.ResponseWriter, r *http.Request, page, step string) {
	set := s.visit(r)
	data := s.newPageData(page, set)

	for _, choice := range []string{"accept", "decline"} {
		href, err := s.link(r, "/go/"+step+"/"+choice, set)
		if err != nil {
			s.fail(w, page, err)
			return
		}
		data.Links[choice] = href
	}

	s.metrics.PageViews.WithLabelValues(page).Inc()
	s.render(w, http.StatusOK, page, data)
}

func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	set := s.visit(r)
	data := s.newPageData(pageThankYou, set)

	home, err := s.link(r, "/", set)
	if err != nil {
		s.fail(w, pageThankYou, err)
		return
	}
	data.Links["home"] = home

	s.metrics.PageViews.WithLabelValues(pageThankYou).Inc()
	s.render(w, http.StatusOK, pageThankYou, data)
}

// handleCheckout redirects a home page offer click to its checkout address
// with the visitor's parameters and the click details attached.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "offer")
	o, ok := findOffer(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	set := s.visit(r)
	content := s.loadContent(r.Context())

	target, err := s.link(r, o.checkout(content), set,
		"offer", o.key,
		"source_page", "main_dtc",
		"timestamp", strconv.FormatInt(s.now().UnixMilli(), 10),
	)
	if err != nil {
		s.logger.Error("invalid checkout address", "offer", o.key, "error", err)
		http.Error(w, "checkout unavailable", http.StatusBadGateway)
		return
	}

	s.logger.Info("redirecting to checkout", "offer", o.key, "params", len(set.Compact()))
	s.metrics.CheckoutRedirects.WithLabelValues(o.key).Inc()
	http.Redirect(w, r, target, http.StatusFound)
}

// handleStep records an upsell or downsell decision and redirects to the
// next step of the funnel.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	step := chi.URLParam(r, "step")
	choice := chi.URLParam(r, "choice")
	d, ok := decisions[step][choice]
	if !ok {
		http.NotFound(w, r)
		return
	}

	set := s.visit(r)
	target, err := s.link(r, d.target(s.cfg), set, d.extra...)
	if err != nil {
		s.logger.Error("invalid step address", "step", step, "choice", choice, "error", err)
		http.Error(w, "next step unavailable", http.StatusBadGateway)
		return
	}

	s.metrics.StepDecisions.WithLabelValues(step, choice).Inc()
	http.Redirect(w, r, target, http.StatusFound)
}
