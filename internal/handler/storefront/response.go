package storefront

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/resell/internal/domain"
)

// cartResponse is the JSON view of a cart summary. Money is rendered as
// fixed two-decimal strings so clients never round floats.
type cartResponse struct {
	Items     []lineItemResponse `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  string             `json:"subtotal"`
	Discount  string             `json:"discount"`
	Tax       string             `json:"tax"`
	Total     string             `json:"total"`
	IsOpen    bool               `json:"isOpen"`
	Coupon    couponResponse     `json:"coupon"`
}

type lineItemResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal string `json:"subtotal"`
	Image    string `json:"image,omitempty"`
	Kind     string `json:"kind"`
	PlanID   string `json:"planId,omitempty"`
	PlanName string `json:"planName,omitempty"`
}

type couponResponse struct {
	Status         string `json:"status"`
	Code           string `json:"code,omitempty"`
	Title          string `json:"title,omitempty"`
	DiscountType   string `json:"discountType,omitempty"`
	DiscountValue  string `json:"discountValue,omitempty"`
	DiscountAmount string `json:"discountAmount,omitempty"`
	FinalAmount    string `json:"finalAmount,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newCartResponse(s *domain.CartSummary) cartResponse {
	resp := cartResponse{
		Items:     make([]lineItemResponse, 0, len(s.Items)),
		ItemCount: s.ItemCount,
		Subtotal:  money(s.Subtotal),
		Discount:  money(s.Discount),
		Tax:       money(s.Tax),
		Total:     money(s.Total),
		IsOpen:    s.IsOpen,
		Coupon:    couponResponse{Status: string(s.CouponStatus)},
	}

	for _, item := range s.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    money(item.Price),
			Quantity: item.Quantity,
			Subtotal: money(item.Subtotal()),
			Image:    item.Image,
			Kind:     string(item.Kind),
			PlanID:   item.PlanID,
			PlanName: item.PlanName,
		})
	}

	if c := s.Coupon; c != nil {
		resp.Coupon.Code = c.Code
		resp.Coupon.Title = c.Title
		resp.Coupon.DiscountType = string(c.DiscountType)
		resp.Coupon.DiscountValue = c.DiscountValue.String()
		resp.Coupon.DiscountAmount = money(c.DiscountAmount)
		resp.Coupon.FinalAmount = money(c.FinalAmount)
	}

	return resp
}
