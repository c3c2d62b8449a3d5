package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// DeviceHeader заголовок с идентификатором устройства в каждом ответе агента
const DeviceHeader = "X-Device-ID"

// Container собирает цепочки для групп операций: общие мидлвари идут
// в каждую группу, добавленные через Add только в ближайшую
type Container struct {
	shared huma.Middlewares
	group  huma.Middlewares
}

func NewContainer(shared ...func(ctx huma.Context, next func(huma.Context))) *Container {
	return &Container{shared: shared}
}

// Add добавляет мидлвари в цепочку текущей группы
func (mc *Container) Add(middlewares ...func(ctx huma.Context, next func(huma.Context))) *Container {
	mc.group = append(mc.group, middlewares...)
	return mc
}

// GetAllAndClear отдаёт общие мидлвари и цепочку группы, затем начинает новую группу
func (mc *Container) GetAllAndClear() huma.Middlewares {
	result := make(huma.Middlewares, 0, len(mc.shared)+len(mc.group))
	result = append(result, mc.shared...)
	result = append(result, mc.group...)
	mc.group = nil
	return result
}

// Device подписывает ответы идентификатором устройства, чтобы CLI видел,
// с каким агентом говорит
func Device(deviceID string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if deviceID != "" {
			ctx.SetHeader(DeviceHeader, deviceID)
		}
		next(ctx)
	}
}
