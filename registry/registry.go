package registry

import (
	consulapi "github.com/hashicorp/consul/api"
)

// ServiceRegistry abstracts service registration so main can run without a
// registry in development.
type ServiceRegistry interface {
	// Register announces a service instance, including a health check.
	Register(id, name, address string, port int, tags []string, check *consulapi.AgentServiceCheck) error
	// Deregister removes a service instance.
	Deregister(id string) error
}
