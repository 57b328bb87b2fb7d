package changes

import (
	"embed"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/directory"
	"github.com/cabflow/cabflow/modules/changes/domain/scheduling"
	"github.com/cabflow/cabflow/modules/changes/handlers"
	"github.com/cabflow/cabflow/modules/changes/presentation/controllers"
	"github.com/cabflow/cabflow/modules/changes/services"
	"github.com/cabflow/cabflow/pkg/application"
	"github.com/cabflow/cabflow/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/changes-schema.sql
var migrationFiles embed.FS

// SchemaSQL returns the DDL for the change request tables.
func SchemaSQL() ([]byte, error) {
	return migrationFiles.ReadFile("infrastructure/persistence/schema/changes-schema.sql")
}

// ModuleOptions carries the collaborators the module cannot build itself:
// the record store and the external directory and calendar integrations.
type ModuleOptions struct {
	Repository changerequest.Repository
	Roles      directory.RoleLookup
	Display    directory.DisplayLookup
	Scheduler  scheduling.Scheduler
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	app.RegisterServices(
		services.NewChangeRequestService(
			m.opts.Repository,
			services.NewApprovalGate(m.opts.Roles),
			app.EventPublisher(),
			conf.Lifecycle.MutationRetries,
		),
	)

	app.RegisterControllers(
		controllers.NewChangesAPIController(app, m.opts.Display),
	)

	handlers.RegisterMeetingEventHandlers(app, m.opts.Scheduler)

	return nil
}

func (m *Module) Name() string {
	return "changes"
}
