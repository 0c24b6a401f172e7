package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type orderResponse struct {
	ID            uuid.UUID              `json:"id"`
	StoreID       uuid.UUID              `json:"storeId"`
	UserID        string                 `json:"userId"`
	AddressID     uuid.UUID              `json:"addressId"`
	Total         decimal.Decimal        `json:"total"`
	PaymentMethod string                 `json:"paymentMethod"`
	Status        string                 `json:"status"`
	IsPaid        bool                   `json:"isPaid"`
	IsCouponUsed  bool                   `json:"isCouponUsed"`
	Coupon        *models.CouponSnapshot `json:"coupon,omitempty"`
	IsGuest       bool                   `json:"isGuest"`
	GuestName     *string                `json:"guestName,omitempty"`
	GuestEmail    *string                `json:"guestEmail,omitempty"`
	GuestPhone    *string                `json:"guestPhone,omitempty"`
	TrackingID    *string                `json:"trackingId,omitempty"`
	TrackingURL   *string                `json:"trackingUrl,omitempty"`
	Courier       *string                `json:"courier,omitempty"`
	Items         []orderItemResponse    `json:"orderItems"`
	Address       *addressResponse       `json:"address,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type orderItemResponse struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type addressResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Street  string    `json:"street"`
	City    string    `json:"city"`
	State   string    `json:"state"`
	Zip     string    `json:"zip"`
	Country string    `json:"country"`
	Phone   string    `json:"phone"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func newOrderResponse(order models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		resp := orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if item.Product != nil {
			resp.Name = item.Product.Name
		}
		items = append(items, resp)
	}

	resp := orderResponse{
		ID:            order.ID,
		StoreID:       order.StoreID,
		UserID:        order.UserID,
		AddressID:     order.AddressID,
		Total:         order.Total,
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		IsPaid:        order.IsPaid,
		IsCouponUsed:  order.IsCouponUsed,
		Coupon:        order.Coupon,
		IsGuest:       order.IsGuest,
		GuestName:     order.GuestName,
		GuestEmail:    order.GuestEmail,
		GuestPhone:    order.GuestPhone,
		TrackingID:    order.TrackingID,
		TrackingURL:   order.TrackingURL,
		Courier:       order.Courier,
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if a := order.Address; a != nil {
		resp.Address = &addressResponse{
			ID:      a.ID,
			Name:    a.Name,
			Email:   a.Email,
			Street:  a.Street,
			City:    a.City,
			State:   a.State,
			Zip:     a.Zip,
			Country: a.Country,
			Phone:   a.Phone,
		}
	}
	return resp
}

func newOrderResponses(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, newOrderResponse(order))
	}
	return out
}

func newOrderPage(page pagination.Page[models.Order]) orderPageResponse {
	return orderPageResponse{
		Orders:     newOrderResponses(page.Items),
		NextCursor: page.Cursor,
	}
}
