package checkout

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Request is the checkout body plus the verified caller, if any.
type Request struct {
	Caller        *identity.Claims `json:"-"`
	AddressID     string           `json:"addressId"`
	Items         []ItemInput      `json:"items"`
	CouponCode    string           `json:"couponCode"`
	PaymentMethod string           `json:"paymentMethod"`
	IsGuest       bool             `json:"isGuest"`
	GuestInfo     *GuestInfo       `json:"guestInfo"`
}

// ItemInput is one cart line. Price and UnitPrice echo what the client
// displayed; checkout re-prices every line from the catalog and never reads
// them.
type ItemInput struct {
	ID        string           `json:"id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type GuestInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

func (g *GuestInfo) complete() bool {
	if g == nil {
		return false
	}
	for _, v := range []string{g.Name, g.Email, g.Phone, g.Address, g.City, g.State, g.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// requestedItem is a validated line with duplicates merged.
type requestedItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type validatedRequest struct {
	buyer         identity.Identity
	addressID     uuid.UUID
	guest         *GuestInfo
	items         []requestedItem
	couponCode    string
	paymentMethod enums.PaymentMethod
}

func (r Request) validate() (*validatedRequest, error) {
	out := &validatedRequest{couponCode: strings.TrimSpace(r.CouponCode)}

	if r.IsGuest {
		if !r.GuestInfo.complete() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing guest information")
		}
		if strings.TrimSpace(r.PaymentMethod) == "" || len(r.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing order details.")
		}
		guest := *r.GuestInfo
		guest.Email = strings.TrimSpace(guest.Email)
		out.guest = &guest
		out.buyer = identity.Guest{
			Name:  strings.TrimSpace(guest.Name),
			Email: guest.Email,
			Phone: strings.TrimSpace(guest.Phone),
		}
	} else {
		if r.Caller == nil || r.Caller.UserID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
		}
		if strings.TrimSpace(r.AddressID) == "" || strings.TrimSpace(r.PaymentMethod) == "" || len(r.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing order details.")
		}
		addressID, err := uuid.Parse(strings.TrimSpace(r.AddressID))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid addressId")
		}
		out.addressID = addressID
		out.buyer = r.Caller.Registered()
	}

	method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(r.PaymentMethod)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	out.paymentMethod = method

	items, err := mergeItems(r.Items)
	if err != nil {
		return nil, err
	}
	out.items = items
	return out, nil
}

// mergeItems sums quantities of repeated product ids, keeping first-seen order.
func mergeItems(inputs []ItemInput) ([]requestedItem, error) {
	index := map[uuid.UUID]int{}
	items := make([]requestedItem, 0, len(inputs))
	for _, in := range inputs {
		id, err := uuid.Parse(strings.TrimSpace(in.ID))
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid product id %q", in.ID)
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if pos, ok := index[id]; ok {
			items[pos].Quantity += in.Quantity
			continue
		}
		index[id] = len(items)
		items = append(items, requestedItem{ProductID: id, Quantity: in.Quantity})
	}
	return items, nil
}

func productIDs(items []requestedItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
