package paymentrpc

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// InitiateRequest is the typed view of the Initiate request. Amount is in
// minor units and travels as a decimal string so it never passes through a
// float.
type InitiateRequest struct {
	OrderID       string
	OrderNumber   string
	Amount        int64
	Currency      string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CallbackURL   string
}

// InitiateResponse is the typed view of the Initiate response.
type InitiateResponse struct {
	Reference        string
	AuthorizationURL string
}

func (r InitiateRequest) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"order_id":       r.OrderID,
		"order_number":   r.OrderNumber,
		"amount":         strconv.FormatInt(r.Amount, 10),
		"currency":       r.Currency,
		"customer_id":    r.CustomerID,
		"customer_name":  r.CustomerName,
		"customer_email": r.CustomerEmail,
		"callback_url":   r.CallbackURL,
	})
}

// RequestFromStruct decodes and validates an Initiate request.
func RequestFromStruct(s *structpb.Struct) (InitiateRequest, error) {
	var req InitiateRequest
	if s == nil {
		return req, fmt.Errorf("paymentrpc: empty request")
	}
	f := s.GetFields()
	req.OrderID = f["order_id"].GetStringValue()
	req.OrderNumber = f["order_number"].GetStringValue()
	req.Currency = f["currency"].GetStringValue()
	req.CustomerID = f["customer_id"].GetStringValue()
	req.CustomerName = f["customer_name"].GetStringValue()
	req.CustomerEmail = f["customer_email"].GetStringValue()
	req.CallbackURL = f["callback_url"].GetStringValue()

	amount, err := strconv.ParseInt(f["amount"].GetStringValue(), 10, 64)
	if err != nil {
		return req, fmt.Errorf("paymentrpc: amount: %w", err)
	}
	req.Amount = amount

	switch {
	case req.OrderNumber == "":
		return req, fmt.Errorf("paymentrpc: order_number is required")
	case req.Amount <= 0:
		return req, fmt.Errorf("paymentrpc: amount must be positive")
	case req.Currency == "":
		return req, fmt.Errorf("paymentrpc: currency is required")
	}
	return req, nil
}

func (r InitiateResponse) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"reference":         r.Reference,
		"authorization_url": r.AuthorizationURL,
	})
}

func ResponseFromStruct(s *structpb.Struct) (InitiateResponse, error) {
	f := s.GetFields()
	res := InitiateResponse{
		Reference:        f["reference"].GetStringValue(),
		AuthorizationURL: f["authorization_url"].GetStringValue(),
	}
	if res.Reference == "" {
		return res, fmt.Errorf("paymentrpc: response without reference")
	}
	return res, nil
}
