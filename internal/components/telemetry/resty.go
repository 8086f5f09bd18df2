package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentResty reports every request made by the client and wraps each one
// in a span of the global tracer provider (a no-op until Setup is called).
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer("sedar-crawler/resty"),
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id uint64
	// startTime does not need to rely on chrono because it does not depend on the
	// absolute time, just the difference in time.
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	start := time.Now()
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: start,
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	end := time.Now()
	ctx := res.Request.Context()

	span := trace.SpanFromContext(ctx)
	defer span.End()
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}

	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		panic("failed to get request context")
	}

	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		end.Sub(reqCtx.startTime).String(),
		res.Status(),
	)

	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	end := time.Now()
	ctx := req.Context()

	span := trace.SpanFromContext(ctx)
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	var duration time.Duration
	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if ok {
		duration = end.Sub(reqCtx.startTime)
	}

	i.tel.ReportWarning(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		duration,
	)
}
