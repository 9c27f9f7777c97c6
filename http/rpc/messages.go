package rpc

import (
	"encoding/json"

	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/wire"
)

// Route paths relative to the router the routes are registered on.
const (
	PathDispatch      = "/rpc/dispatch"
	PathSubscriptions = "/rpc/subscriptions"
	PathSubscription  = "/rpc/subscriptions/:id"
)

// DispatchResponse carries the result of a dispatched action.
type DispatchResponse struct {
	Result json.RawMessage `json:"result"`
}

// SubscribeRequest selects the action kinds a subscription receives.
type SubscribeRequest struct {
	Kinds []string `json:"kinds" validate:"required,min=1,dive,action_kind"`
}

type SubscribeResponse struct {
	SubscriptionID dispatch.SubscriptionID `json:"subscription_id"`
}

type CheckResponse struct {
	Results []wire.NotificationEnvelope `json:"results"`
}
