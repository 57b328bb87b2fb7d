package server

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/cabflow/cabflow/pkg/application"
)

func NewHTTPServer(app application.Application) *HTTPServer {
	return &HTTPServer{
		Controllers: app.Controllers(),
		Middlewares: app.Middleware(),
	}
}

type HTTPServer struct {
	Controllers []application.Controller
	Middlewares []mux.MiddlewareFunc
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}
	return r
}

func (s *HTTPServer) Handler() http.Handler {
	return cors.AllowAll().Handler(gziphandler.GzipHandler(s.Router()))
}

func (s *HTTPServer) Start(socketAddress string) error {
	return http.ListenAndServe(socketAddress, s.Handler())
}
