package discovery

import (
	"fmt"
	"log"
	"strconv"

	"github.com/hashicorp/consul/api"

	"practice-service/internal/config"
)

type ServiceRegistry struct {
	client *api.Client
	config *config.Config
}

var ServiceDiscovery *ServiceRegistry

// InitServiceDiscovery registers the service with Consul; call after config
// is loaded.
func InitServiceDiscovery(cfg *config.Config) error {
	var err error
	ServiceDiscovery, err = NewServiceRegistry(cfg)
	if err != nil {
		return fmt.Errorf("service discovery init failed: %s", err)
	}

	if err := ServiceDiscovery.Register(); err != nil {
		return fmt.Errorf("failed to register service: %s", err)
	}

	log.Println("Service Discovery initialized successfully")
	return nil
}

func NewServiceRegistry(cfg *config.Config) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.ConsulAddress

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %v", err)
	}

	return &ServiceRegistry{
		client: client,
		config: cfg,
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	httpPort, err := strconv.Atoi(sr.config.Server.Port)
	if err != nil {
		return fmt.Errorf("invalid HTTP port: %v", err)
	}

	serviceID := fmt.Sprintf("%s-%s", sr.config.Server.ServiceName, sr.config.Server.ServiceAddress)

	registration := &api.AgentServiceRegistration{
		ID:      serviceID + "-http",
		Name:    sr.config.Server.ServiceName,
		Port:    httpPort,
		Address: sr.config.Server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", sr.config.Server.ServiceAddress, sr.config.Server.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"practice", "learning", "http", "api"},
		Meta: map[string]string{
			"protocol": "http",
			"version":  "1.0",
		},
	}

	if err := sr.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %v", err)
	}

	log.Printf("Successfully registered HTTP service %s with Consul at %s:%d",
		sr.config.Server.ServiceName, sr.config.Server.ServiceAddress, httpPort)
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	serviceID := fmt.Sprintf("%s-%s", sr.config.Server.ServiceName, sr.config.Server.ServiceAddress)

	if err := sr.client.Agent().ServiceDeregister(serviceID + "-http"); err != nil {
		log.Printf("Error deregistering HTTP service: %v", err)
		return err
	}

	log.Printf("Successfully deregistered service %s from Consul", sr.config.Server.ServiceName)
	return nil
}
