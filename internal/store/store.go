package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Customization is the operator-editable content of the funnel pages.
//
// Customization is stored as a single JSON document. Saving replaces the
// whole document; there is no per-field patching.
type Customization struct {
	Headline             string `json:"headline"`
	VideoPlaceholderText string `json:"videoPlaceholderText"`
	AudioWarningTitle    string `json:"audioWarningTitle"`
	AudioWarningSubtitle string `json:"audioWarningSubtitle"`
	VideoWarningTitle    string `json:"videoWarningTitle"`
	VideoWarningSubtitle string `json:"videoWarningSubtitle"`
	GuaranteeTitle       string `json:"guaranteeTitle"`
	GuaranteeSubtitle    string `json:"guaranteeSubtitle"`
	GuaranteeDescription string `json:"guaranteeDescription"`

	MainOfferImage string `json:"mainOfferImage"`
	Offer1Image    string `json:"offer1Image"`
	Offer2Image    string `json:"offer2Image"`

	MainOfferCheckoutURL string `json:"mainOfferCheckoutUrl"`
	Offer1CheckoutURL    string `json:"offer1CheckoutUrl"`
	Offer2CheckoutURL    string `json:"offer2CheckoutUrl"`
}

// DefaultCheckoutURL is the placeholder checkout address shipped with the defaults.
const DefaultCheckoutURL = "https://your-checkout-domain.com/checkout"

// DefaultCustomization returns the content shown before anything is saved.
func DefaultCustomization() Customization {
	return Customization{
		Headline:             "your headline here",
		VideoPlaceholderText: "Video will be added here",
		AudioWarningTitle:    "Please make sure your sound is on",
		AudioWarningSubtitle: "This video contains important audio information",
		VideoWarningTitle:    "This video may be taken down at any time",
		VideoWarningSubtitle: "Watch now before it's removed from the internet",
		GuaranteeTitle:       "180 Days Guarantee",
		GuaranteeSubtitle:    "100% money-back guarantee",
		GuaranteeDescription: "Your order today is protected by our iron-clad 180-day 100% money-back guarantee. " +
			"If you're not amazed by how well YOUR BRAND enhances your vitality and performance, helping you overcome " +
			"the challenges of performance problems, or if you don't feel more confident and satisfied, just let us know " +
			"at any time within the next 180 days, and we'll refund every penny of your investment. No questions asked.",
		MainOfferImage:       "https://i.imgur.com/favx8kc.png",
		Offer1Image:          "https://i.imgur.com/qKGOtUf.png",
		Offer2Image:          "https://i.imgur.com/XiIuUjg.png",
		MainOfferCheckoutURL: DefaultCheckoutURL,
		Offer1CheckoutURL:    DefaultCheckoutURL,
		Offer2CheckoutURL:    DefaultCheckoutURL,
	}
}

// Validate checks that the checkout URLs are usable link targets.
func (c Customization) Validate() error {
	checkouts := []struct {
		field string
		value string
	}{
		{"mainOfferCheckoutUrl", c.MainOfferCheckoutURL},
		{"offer1CheckoutUrl", c.Offer1CheckoutURL},
		{"offer2CheckoutUrl", c.Offer2CheckoutURL},
	}
	for _, co := range checkouts {
		v := strings.TrimSpace(co.value)
		if v == "" {
			return fmt.Errorf("%s is required", co.field)
		}
		if !strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("%s must be an http(s) URL or an absolute path, got %q", co.field, v)
		}
	}
	return nil
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")

// Store defines the interface for persisting and subscribing to customization.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Load returns the saved customization. ok is false when nothing has
	// been saved yet.
	Load(ctx context.Context) (c Customization, ok bool, err error)

	// Save replaces the saved customization and notifies all subscribers.
	Save(ctx context.Context, c Customization) error

	// Reset deletes the saved customization and notifies all subscribers
	// with the defaults.
	Reset(ctx context.Context) error

	// Subscribe returns a channel that receives every saved customization.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Customization

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Customization)
}
