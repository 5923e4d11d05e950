package freelancer

import (
	"github.com/smallbiznis/invoiceflow/internal/freelancer/repository"
	"github.com/smallbiznis/invoiceflow/internal/freelancer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("freelancer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
