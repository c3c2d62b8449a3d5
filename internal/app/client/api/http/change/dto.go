package change

import (
	"fitsync/internal/domain/change"
)

type appendInput struct {
	Domain string `path:"domain" example:"workout" doc:"Имя домена"`
	Body   appendRequest
}

type appendRequest struct {
	EntityID    string        `json:"entityId" minLength:"1" doc:"ID сущности домена"`
	Action      change.Action `json:"action" enum:"create,update,delete"`
	Payload     any           `json:"payload,omitempty" required:"false" doc:"Новое состояние сущности, обязательно для create и update"`
	BaseVersion int64         `json:"baseVersion,omitempty" required:"false" doc:"Серверная версия, от которой сделана правка"`
}

type appendOutput struct {
	Status int
	Body   change.PendingChange
}

type listInput struct {
	Domain string `path:"domain" example:"workout" doc:"Имя домена"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Domain  string                 `json:"domain"`
	Changes []change.PendingChange `json:"changes"`
}

type domainsInput struct{}

type domainsOutput struct {
	Body domainsResponse
}

type domainsResponse struct {
	Domains []string `json:"domains"`
}
