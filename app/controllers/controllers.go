package controllers

import (
	"github.com/plateful/plateful/internal/pkg/availability"
	"github.com/plateful/plateful/internal/pkg/fulfillment"
	"github.com/plateful/plateful/internal/pkg/jobqueue"
	"github.com/plateful/plateful/internal/pkg/webhooks"
)

// Services bundles the domain services the handlers dispatch to.
type Services struct {
	Webhooks *webhooks.Service
	Saga     *fulfillment.Saga
	Engine   *availability.Engine
	Queue    *jobqueue.Queue
}

var services *Services

// Initialize wires the controllers to their services. Must be called
// before the router installs any handler.
func Initialize(s *Services) {
	services = s
}
