package consul

import (
	"strconv"

	"github.com/hashicorp/consul/api"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/config"
)

const (
	checkInterval = "5s"
	checkTimeout  = "2s"
)

// Agent announces the checkout service in the consul catalog with an HTTP
// liveness check against its /ping endpoint.
type Agent struct {
	agent *api.Agent
	reg   *api.AgentServiceRegistration
}

func NewAgent(cfg *config.Config) (*Agent, error) {
	client, err := api.NewClient(&api.Config{Address: cfg.ConsulDsn})
	if err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(cfg.ServicePort)
	if err != nil {
		return nil, err
	}

	return &Agent{
		agent: client.Agent(),
		reg: &api.AgentServiceRegistration{
			ID:      cfg.ServiceId,
			Name:    cfg.ServiceName,
			Address: cfg.ServiceHost,
			Port:    port,
			Check: &api.AgentServiceCheck{
				HTTP:     "http://" + cfg.ServiceHost + ":" + cfg.ServicePort + "/ping",
				Interval: checkInterval,
				Timeout:  checkTimeout,
			},
		},
	}, nil
}

func (a *Agent) Register() error {
	return a.agent.ServiceRegister(a.reg)
}

func (a *Agent) Unregister() error {
	return a.agent.ServiceDeregister(a.reg.ID)
}
