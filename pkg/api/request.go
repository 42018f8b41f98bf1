package api

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// RequestStatus is the lifecycle state of a remote request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInquiring  RequestStatus = "inquiring"
	StatusApproved   RequestStatus = "approved"
	StatusFailed     RequestStatus = "failed"
	StatusDraft      RequestStatus = "draft"
	StatusTiersSetup RequestStatus = "tiers_setup"
	StatusScheduled  RequestStatus = "scheduled"
	StatusRevoking   RequestStatus = "revoking"
	StatusRevoked    RequestStatus = "revoked"
)

// ResourceRequests is the listing resource for asset requests.
const ResourceRequests = "requests"

// Company identifies a provider or vendor account.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Connection links a product to a provider through a hub.
type Connection struct {
	ID       string   `json:"id"`
	Type     string   `json:"type,omitempty"`
	Provider *Company `json:"provider,omitempty"`
	Vendor   *Company `json:"vendor,omitempty"`
}

// Product is the product an asset was purchased for.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Account is a tier account (customer, tier1, tier2).
type Account struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// Tiers holds the tier chain of an asset.
type Tiers struct {
	Customer *Account `json:"customer,omitempty"`
	Tier1    *Account `json:"tier1,omitempty"`
	Tier2    *Account `json:"tier2,omitempty"`
}

// Param is an ordering or fulfillment parameter of an asset.
type Param struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Value      string `json:"value,omitempty"`
	ValueError string `json:"value_error,omitempty"`
}

// Asset is the subscription a request operates on.
type Asset struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id,omitempty"`
	Connection Connection `json:"connection"`
	Product    Product    `json:"product"`
	Tiers      *Tiers     `json:"tiers,omitempty"`
	Params     []Param    `json:"params,omitempty"`
}

// Request is a remote asset request.
type Request struct {
	ID      string        `json:"id"`
	Type    string        `json:"type,omitempty"`
	Status  RequestStatus `json:"status"`
	Created string        `json:"created,omitempty"`
	Updated string        `json:"updated,omitempty"`
	Asset   Asset         `json:"asset"`

	// Raw is the JSON document the request was decoded from. It keeps
	// fields the struct does not model reachable through Field.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the request and keeps a copy of the raw document.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Document returns the JSON form of the request: Raw when present,
// otherwise the marshaled struct.
func (r *Request) Document() []byte {
	if len(r.Raw) > 0 {
		return r.Raw
	}
	type plain Request
	data, err := json.Marshal(plain(*r))
	if err != nil {
		return nil
	}
	return data
}

// Field returns the value at a dotted path (e.g. "asset.product.id"), or
// "" when the path does not exist.
func (r *Request) Field(path string) string {
	return gjson.GetBytes(r.Document(), path).String()
}

// Param returns the asset parameter with the given id, or nil.
func (r *Request) Param(id string) *Param {
	for i := range r.Asset.Params {
		if r.Asset.Params[i].ID == id {
			return &r.Asset.Params[i]
		}
	}
	return nil
}

// IsPending reports whether the request can still be approved.
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}
