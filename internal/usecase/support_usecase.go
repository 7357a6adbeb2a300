package usecase

import (
	"context"
	"strings"

	"peercart/internal/validator"

	"go.uber.org/zap"
)

type FAQ struct {
	Question string
	Answer   string
}

type FAQGroup struct {
	Category string
	Items    []FAQ
}

var faqGroups = []FAQGroup{
	{
		Category: "Buying",
		Items: []FAQ{
			{"How do I buy an item?", "Add the item to your cart, then go to checkout and enter your shipping address."},
			{"Can I buy from more than one seller at once?", "Yes. Your cart is grouped by seller and shipping is worked out per seller."},
			{"How is shipping calculated?", "Each seller charges R 50 plus R 10 for every extra item. Sellers you buy three or more units from get 10% off shipping at checkout."},
		},
	},
	{
		Category: "Selling",
		Items: []FAQ{
			{"How do I start selling?", "Register a seller account, then create a listing from your dashboard."},
			{"How do I update stock?", "Open the listing in your dashboard and change the quantity. Every change is recorded."},
		},
	},
	{
		Category: "Orders",
		Items: []FAQ{
			{"Where can I see my orders?", "Your dashboard lists every order with its current status."},
			{"Can an order be cancelled?", "The seller can cancel an order until it has been shipped. Stock is returned to the listing."},
		},
	},
	{
		Category: "Account",
		Items: []FAQ{
			{"How do I change my password?", "Go to Settings and choose Security. Changing your password signs you out on other devices."},
			{"Is VAT included?", "Prices include 15% VAT. Checkout shows the VAT amount separately."},
		},
	},
}

// 問い合わせフォーム
type ContactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Subject string `form:"subject"`
	Message string `form:"message"`
}

const (
	maxSubjectLen = 150
	maxContactLen = 5000
)

// サポート・FAQ。問い合わせはログに残すだけ（メール送信はしない）
type SupportUsecase struct {
	log *zap.Logger
}

func NewSupportUsecase(log *zap.Logger) *SupportUsecase {
	return &SupportUsecase{log: log}
}

func (u *SupportUsecase) FAQ() []FAQGroup {
	return faqGroups
}

func ValidateContactForm(f ContactForm) validator.Errors {
	var errs validator.Errors

	errs.Require(f.Name, "Name is required")
	if errs.Require(f.Email, "Email is required") && !validator.IsEmail(f.Email) {
		errs.Add("Email address is not valid")
	}
	if errs.Require(f.Subject, "Subject is required") && validator.Len(f.Subject) > maxSubjectLen {
		errs.Add("Subject must be at most 150 characters")
	}
	if errs.Require(f.Message, "Message is required") && validator.Len(f.Message) > maxContactLen {
		errs.Add("Message must be at most 5000 characters")
	}
	return errs
}

func (u *SupportUsecase) Contact(ctx context.Context, userID int64, f ContactForm) error {
	if errs := ValidateContactForm(f); len(errs) > 0 {
		return errs
	}

	u.log.Info("support request",
		zap.Int64("user_id", userID),
		zap.String("name", strings.TrimSpace(f.Name)),
		zap.String("email", strings.TrimSpace(f.Email)),
		zap.String("subject", strings.TrimSpace(f.Subject)),
		zap.Int("message_len", validator.Len(f.Message)),
	)
	return nil
}
