package entity

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry 实体实例注册表
// 注册构造函数，首次获取时构造并缓存，同名实体始终返回同一实例
// 相比包级单例，注册表本身可以被创建多份，测试之间互不影响
type Registry struct {
	mu           sync.Mutex
	constructors map[string]func() (any, error)
	instances    map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]func() (any, error)),
		instances:    make(map[string]any),
	}
}

// Register 注册实体构造函数，重复注册覆盖旧的构造函数并丢弃已缓存实例
func (r *Registry) Register(name string, constructor func() (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = constructor
	delete(r.instances, name)
}

// Get 获取实体实例，未构造时先调用构造函数
func (r *Registry) Get(name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if instance, ok := r.instances[name]; ok {
		return instance, nil
	}

	constructor, ok := r.constructors[name]
	if !ok {
		return nil, errors.Errorf("entity %s not registered", name)
	}

	instance, err := constructor()
	if err != nil {
		return nil, errors.WithMessagef(err, "construct entity %s failed", name)
	}
	r.instances[name] = instance
	return instance, nil
}

// MustGet 获取实体实例，失败时 panic
func (r *Registry) MustGet(name string) any {
	instance, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return instance
}

// ResetAll 丢弃全部已缓存实例，下次获取时重新构造
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]any)
}

// Names 返回已注册的实体名称
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// GetAs 获取实体实例并断言为指定类型
func GetAs[T any](r *Registry, name string) (T, error) {
	var zero T
	instance, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errors.Errorf("entity %s has type %T, not the requested type", name, instance)
	}
	return typed, nil
}

// MustGetAs 获取实体实例并断言为指定类型，失败时 panic
func MustGetAs[T any](r *Registry, name string) T {
	typed, err := GetAs[T](r, name)
	if err != nil {
		panic(err)
	}
	return typed
}
