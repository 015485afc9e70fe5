package application

import (
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/wfbench/pkg/eventbus"
)

// Controller mounts a group of routes onto the router.
type Controller interface {
	Register(r *mux.Router)
	Key() string
}

// Application is the container modules register their services and controllers into.
type Application interface {
	DB() *pgxpool.Pool
	Redis() *redis.Client
	EventPublisher() eventbus.EventBus
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}

type Module interface {
	Register(app Application) error
	Name() string
}
