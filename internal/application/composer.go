package application

import (
	"fmt"
	"strings"

	"github.com/backoffice-platform/returns-service/internal/domain"
)

// Customer segments a composed reply can target.
const (
	SegmentEmpty           = "empty"
	SegmentNonEligibleOnly = "non_eligible_only"
	SegmentFirstTime       = "first_time"
	SegmentDiscountCode    = "discount_code"
	SegmentReturning       = "returning"
)

const noSelectionMessage = "No items selected for return processing."

// ComposeItem is one selected line item with its eligibility decision.
type ComposeItem struct {
	Name     string
	Quantity int
	Status   string
}

// ComposeInput carries everything a reply depends on.
type ComposeInput struct {
	CustomerName string
	OrderCount   int
	DiscountCode string
	Profile      domain.PolicyProfile
	Items        []ComposeItem
}

// Composer generates the plain-text customer reply for a return
// request. The wording is the store's established template; only the
// store name, return window and discount threshold vary.
type Composer struct {
	storeName string
}

// NewComposer creates a Composer signing off as storeName.
func NewComposer(storeName string) *Composer {
	return &Composer{storeName: storeName}
}

// Compose builds the reply body and reports which customer segment the
// remedy enumeration targeted. Non-eligible items are addressed first,
// each with its reason sentence, then eligible items with the remedy
// options for the customer's segment.
func (c *Composer) Compose(in ComposeInput) (string, string) {
	if len(in.Items) == 0 {
		return noSelectionMessage, SegmentEmpty
	}

	var eligible, nonEligible []ComposeItem
	for _, item := range in.Items {
		if item.Status == domain.StatusEligible {
			eligible = append(eligible, item)
		} else {
			nonEligible = append(nonEligible, item)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nThank you for sharing your feedback!\n\n", in.CustomerName)

	for _, item := range nonEligible {
		c.writeNonEligible(&b, item, in.Profile)
	}

	segment := SegmentNonEligibleOnly
	if len(eligible) > 0 {
		segment = c.writeEligible(&b, eligible, in)
	}

	fmt.Fprintf(&b, "Please feel free to reach out if there's anything you need—we're here to assist!\n\n")
	fmt.Fprintf(&b, "Best regards,\nCustomer Service Team\n%s", c.storeName)

	return b.String(), segment
}

func (c *Composer) writeNonEligible(b *strings.Builder, item ComposeItem, profile domain.PolicyProfile) {
	switch item.Status {
	case domain.StatusFinalSale:
		fmt.Fprintf(b, "Regarding your %s, this item was marked as Final Sale at the time of purchase and unfortunately cannot be returned or exchanged. We appreciate your understanding with our Final Sale policy.\n\n", item.Name)
	case domain.StatusExpired:
		fmt.Fprintf(b, "Regarding your %s, the return period has expired as returns must be initiated within %d days of delivery. We appreciate your understanding with our return timeframe policy.\n\n", item.Name, profile.ReturnWindowDays)
	case profile.DiscountStatus():
		fmt.Fprintf(b, "Regarding your %s, this item had a discount of %g%% or more and falls under our promotional return policy where returns are not available. We appreciate your understanding.\n\n", item.Name, profile.DiscountThreshold)
	}
}

func (c *Composer) writeEligible(b *strings.Builder, eligible []ComposeItem, in ComposeInput) string {
	fmt.Fprintf(b, "We're sorry to hear our %s didn't meet your expectations. You're always welcome to try a different size if you'd like, as we hope that will offer a better fit for you. If you're comfortable sharing your body measurements (bust, waist and hips), we'll be able to suggest the best size for you.\n\n", itemsText(eligible))

	plural := ""
	if len(eligible) > 1 {
		plural = "s"
	}

	var segment string
	switch {
	case in.OrderCount == 1:
		segment = SegmentFirstTime
		fmt.Fprintf(b, "If you'd like to return the item%s, then please know that we're here to help. As a valued new customer, we want to ensure you have a great experience with us. We have several flexible return options available:\n\n", plural)
		b.WriteString(labelIntro)
		b.WriteString(fullOptionsBlock)
	case in.DiscountCode != "":
		segment = SegmentDiscountCode
		fmt.Fprintf(b, "If you'd like to return the item%s, then please know that we're here to help. As your order was placed using the %s discount code, it falls under our promotional return policy. While we're unable to offer a refund, we do have a few flexible return options available that hopefully will work for you.\n\n", plural, in.DiscountCode)
		b.WriteString(labelIntro)
		b.WriteString(promotionalOptionsBlock)
	default:
		segment = SegmentReturning
		fmt.Fprintf(b, "If you'd like to return the item%s, then please know that we're here to help. We have several flexible return options available:\n\n", plural)
		b.WriteString(labelIntro)
		b.WriteString(fullOptionsBlock)
	}

	b.WriteString("To start the return process, please reply to this email with your preferred option.\n\n")
	return segment
}

const labelIntro = "Once you've confirmed how you'd like to proceed, we'll create a return shipping label for you and guide you through the next steps.\n\n"

const fullOptionsBlock = "1. 120% Lifetime Digital Store Credit Voucher:\n" +
	"   Enjoy a bonus 20% credit plus free return shipping.\n\n" +
	"2. Exchange for a Different Size or Item:\n" +
	"   Utilise a subsidised returns label for $20 USD, and we'll cover the outbound shipping for your exchange.\n\n" +
	"3. Full Refund:\n" +
	"   Utilise a subsidised returns label for $30 USD for a complete refund to your original payment method.\n\n" +
	"4. 10% Alteration Subsidy + $20 USD Gift Voucher:\n" +
	"   Love the style but need a tweak? Keep the item and enjoy a 10% discount for local alterations plus a $20 USD gift voucher as a token of our appreciation.\n\n"

const promotionalOptionsBlock = "1. Lifetime Digital Store Credit Voucher:\n" +
	"   Utilise a subsidised returns label for $20 USD.\n\n" +
	"2. Exchange for a Different Size or Item:\n" +
	"   Utilise a subsidised returns label for $20 USD, and we'll cover the outbound shipping for your exchange.\n\n" +
	"3. 10% Alteration Subsidy + $20 USD Gift Voucher:\n" +
	"   Love the style but need a tweak? Keep the item and enjoy a 10% discount for local alterations plus a $20 USD gift voucher as a token of our appreciation.\n\n"

// itemsText joins item names with quantities the way a human would
// write a list: "A", "A and B", "A, B, and C".
func itemsText(items []ComposeItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name
		if item.Quantity > 1 {
			name = fmt.Sprintf("%s (x%d)", item.Name, item.Quantity)
		}
		names = append(names, name)
	}

	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
