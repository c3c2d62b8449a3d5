package sync

import "context"

// Repository хранит состояние планировщика повторов, неудачных элементов и конфликтов
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}
