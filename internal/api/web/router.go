package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/status"
	"github.com/oshokin/air-alarm/internal/logger"
)

// maxBodySize bounds command request bodies.
const maxBodySize = 64 << 10

// Route paths.
const (
	PathHealth     = "/healthz"
	PathStatus     = "/status"
	PathMetrics    = "/metrics"
	PathCommand    = "/command"
	PathThresholds = "/thresholds"
)

// Service abstracts the device operations the HTTP layer depends on.
type Service interface {
	Status() status.Status
	ApplyCommand(ctx context.Context, cmd command.Command) (command.Result, error)
}

type api struct {
	service Service
	router  *command.Router
}

// NewRouter builds the HTTP routes. A nil metrics handler disables /metrics.
func NewRouter(service Service, metricsHandler http.Handler) *mux.Router {
	a := &api{
		service: service,
		router:  command.NewRouter(command.Topics{}),
	}

	r := mux.NewRouter()

	r.HandleFunc(PathHealth, a.health).Methods(http.MethodGet)
	r.HandleFunc(PathStatus, a.status).Methods(http.MethodGet)
	r.HandleFunc(PathCommand, a.command).Methods(http.MethodPost)
	r.HandleFunc(PathThresholds, a.thresholds).Methods(http.MethodPost)

	if metricsHandler != nil {
		r.Handle(PathMetrics, metricsHandler).Methods(http.MethodGet)
	}

	return r
}

// NewHandler wraps the router with access logging into the context logger.
func NewHandler(ctx context.Context, service Service, metricsHandler http.Handler) http.Handler {
	ctx = logger.WithName(ctx, "http")

	return handlers.LoggingHandler(
		logger.Writer(ctx, zap.DebugLevel),
		handlers.RecoveryHandler()(NewRouter(service, metricsHandler)))
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeStruct(w, http.StatusOK, &structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewStringValue("ok"),
	}})
}

func (a *api) status(w http.ResponseWriter, _ *http.Request) {
	message, err := structpb.NewStruct(a.service.Status().Extended())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to encode status")
		return
	}

	writeStruct(w, http.StatusOK, message)
}

func (a *api) command(w http.ResponseWriter, r *http.Request) {
	fields, ok := readStruct(w, r)
	if !ok {
		return
	}

	cmd, err := a.router.DecodeControl(fields)
	if err != nil {
		writeError(w, statusCode(err), err.Error())
		return
	}

	a.apply(w, r, cmd)
}

func (a *api) thresholds(w http.ResponseWriter, r *http.Request) {
	fields, ok := readStruct(w, r)
	if !ok {
		return
	}

	if len(fields.GetFields()) == 0 {
		writeError(w, http.StatusBadRequest, "at least one threshold is required")
		return
	}

	cmd, err := a.router.DecodeThresholds(fields)
	if err != nil {
		writeError(w, statusCode(err), err.Error())
		return
	}

	a.apply(w, r, cmd)
}

func (a *api) apply(w http.ResponseWriter, r *http.Request, cmd command.Command) {
	result, err := a.service.ApplyCommand(r.Context(), cmd)
	if err != nil {
		writeError(w, statusCode(err), err.Error())
		return
	}

	response := &structpb.Struct{Fields: map[string]*structpb.Value{
		"accepted":   stringList(result.Accepted),
		"rejected":   stringList(result.Rejected),
		"thresholds": structpb.NewStructValue(command.ThresholdsToStruct(a.service.Status().Thresholds)),
	}}

	writeStruct(w, http.StatusOK, response)
}

func readStruct(w http.ResponseWriter, r *http.Request) (*structpb.Struct, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}

	fields := new(structpb.Struct)
	if err = protojson.Unmarshal(body, fields); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}

	return fields, true
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, air.ErrDecode),
		errors.Is(err, command.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, air.ErrValidationRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func stringList(values []string) *structpb.Value {
	list := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		list = append(list, structpb.NewStringValue(v))
	}

	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeStruct(w, code, &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(message),
	}})
}

func writeStruct(w http.ResponseWriter, code int, message *structpb.Struct) {
	body, err := protojson.Marshal(message)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
