package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/cabflow/cabflow/pkg/eventbus"
)

// Controller registers a set of routes under its own prefix.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module is a self-contained vertical registering its services and
// controllers on the application.
type Module interface {
	Name() string
	Register(app Application) error
}

type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger

	RegisterServices(services ...any)
	Service(service any) any
	Services() map[reflect.Type]any

	RegisterControllers(controllers ...Controller)
	Controllers() []Controller

	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	Middleware() []mux.MiddlewareFunc
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:     opts.Pool,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
		services: map[reflect.Type]any{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	services    map[reflect.Type]any
	controllers map[string]Controller
	middleware  []mux.MiddlewareFunc
}

func (app *application) DB() *pgxpool.Pool {
	return app.pool
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventBus
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

// RegisterServices registers a new service in the application by its type.
func (app *application) RegisterServices(services ...any) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type.
func (app *application) Service(service any) any {
	serviceType := reflect.TypeOf(service)
	svc, ok := app.services[serviceType]
	if !ok {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

func (app *application) Services() map[reflect.Type]any {
	return app.services
}

func (app *application) RegisterControllers(controllers ...Controller) {
	if app.controllers == nil {
		app.controllers = map[string]Controller{}
	}
	for _, controller := range controllers {
		app.controllers[controller.Key()] = controller
	}
}

func (app *application) Controllers() []Controller {
	out := make([]Controller, 0, len(app.controllers))
	for _, c := range app.controllers {
		out = append(out, c)
	}
	return out
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}
