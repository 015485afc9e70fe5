package application

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type pingService struct{}

type stubController struct{ key string }

func (c *stubController) Register(r *mux.Router) {
	r.HandleFunc("/"+c.key, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func (c *stubController) Key() string { return c.key }

type stubModule struct {
	name string
	err  error
}

func (m *stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterServices(&pingService{})
	app.RegisterControllers(&stubController{key: m.name})
	return nil
}

func (m *stubModule) Name() string { return m.name }

func TestApplication_ServiceRegistry(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	svc := &pingService{}
	app.RegisterServices(svc)

	require.Same(t, svc, app.Service(pingService{}))
	require.Panics(t, func() { app.Service(stubController{}) })
}

func TestLoadModules(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	require.NoError(t, LoadModules(app, &stubModule{name: "b"}, &stubModule{name: "a"}))

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "a", controllers[0].Key())
	require.Equal(t, "b", controllers[1].Key())

	err := LoadModules(app, &stubModule{name: "broken", err: errors.New("nope")})
	require.EqualError(t, err, "module broken: nope")
}
