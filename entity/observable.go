package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/dataset"
	"github.com/hatlonely/bex/log"
	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/validate"
)

type ObservableOptions struct {
	// Name 组件名称标识，用于所有观测维度
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"entity"`

	// EnableMetrics 是否启用指标收集
	EnableMetrics bool `cfg:"enableMetrics" def:"true"`

	// EnableLogging 是否启用日志记录
	EnableLogging bool `cfg:"enableLogging" def:"true"`

	// EnableTracing 是否启用分布式追踪
	EnableTracing bool `cfg:"enableTracing" def:"false"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// NewObservableMetrics 创建指标收集器并注册到默认 registry
func NewObservableMetrics(name string) *ObservableMetrics {
	metrics := &ObservableMetrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of entity operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of entity operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active entity operations",
			},
			[]string{"operation"},
		),
	}

	prometheus.MustRegister(
		metrics.operationCounter,
		metrics.operationDuration,
		metrics.activeOperations,
	)
	return metrics
}

// ObservableEntity 装饰器，为实体访问层添加观测能力
type ObservableEntity[T any] struct {
	entity Interface[T]

	logger        log.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableEntityWithOptions[T any](inner Interface[T], logger log.Logger, options *ObservableOptions) (*ObservableEntity[T], error) {
	if inner == nil {
		return nil, errors.New("inner entity is required")
	}
	if options == nil {
		options = &ObservableOptions{Name: "entity", EnableMetrics: true, EnableLogging: true}
	}
	if logger == nil {
		logger = log.NewNop()
	}

	obs := &ObservableEntity[T]{
		entity:        inner,
		logger:        logger.WithGroup("observableEntity"),
		name:          options.Name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(options.Name)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("entity.%s", options.Name))
	}
	return obs, nil
}

// observeOperation 统一的操作观测逻辑
func (obs *ObservableEntity[T]) observeOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("entity.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
			),
		)
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if obs.enableTracing && span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.enableLogging {
		if err != nil {
			obs.logger.ErrorContext(ctx, "entity operation failed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "entity operation completed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}
	return err
}

func (obs *ObservableEntity[T]) Get(ctx context.Context, q query.Query) (*T, bool, error) {
	var object *T
	var found bool
	err := obs.observeOperation(ctx, "get", func(ctx context.Context) error {
		var opErr error
		object, found, opErr = obs.entity.Get(ctx, q)
		return opErr
	})
	return object, found, err
}

func (obs *ObservableEntity[T]) GetByKey(ctx context.Context, pk map[string]any) (*T, bool, error) {
	var object *T
	var found bool
	err := obs.observeOperation(ctx, "get_by_key", func(ctx context.Context) error {
		var opErr error
		object, found, opErr = obs.entity.GetByKey(ctx, pk)
		return opErr
	})
	return object, found, err
}

func (obs *ObservableEntity[T]) Find(ctx context.Context, q query.Query, opts ...database.FindOption) ([]*T, error) {
	var objects []*T
	err := obs.observeOperation(ctx, "find", func(ctx context.Context) error {
		var opErr error
		objects, opErr = obs.entity.Find(ctx, q, opts...)
		return opErr
	})
	return objects, err
}

func (obs *ObservableEntity[T]) Fill(ctx context.Context, q query.Query, opts ...database.FindOption) (*dataset.Table, error) {
	var table *dataset.Table
	err := obs.observeOperation(ctx, "fill", func(ctx context.Context) error {
		var opErr error
		table, opErr = obs.entity.Fill(ctx, q, opts...)
		return opErr
	})
	return table, err
}

func (obs *ObservableEntity[T]) Create(ctx context.Context, object *T) error {
	return obs.observeOperation(ctx, "create", func(ctx context.Context) error {
		return obs.entity.Create(ctx, object)
	})
}

func (obs *ObservableEntity[T]) Update(ctx context.Context, object *T) error {
	return obs.observeOperation(ctx, "update", func(ctx context.Context) error {
		return obs.entity.Update(ctx, object)
	})
}

func (obs *ObservableEntity[T]) Delete(ctx context.Context, pk map[string]any) error {
	return obs.observeOperation(ctx, "delete", func(ctx context.Context) error {
		return obs.entity.Delete(ctx, pk)
	})
}

func (obs *ObservableEntity[T]) Save(ctx context.Context, table *dataset.Table) error {
	return obs.observeOperation(ctx, "save", func(ctx context.Context) error {
		return obs.entity.Save(ctx, table)
	})
}

func (obs *ObservableEntity[T]) Validate(object *T) validate.Errors {
	return obs.entity.Validate(object)
}
