package sync

import (
	"fitsync/internal/domain/sync"
)

type statusInput struct{}

type statusOutput struct {
	Body sync.Status
}

type forceInput struct{}

type forceOutput struct {
	Status int
	Body   forceResponse
}

type forceResponse struct {
	Result sync.ForceResult `json:"result" enum:"started,alreadyInProgress" doc:"started или alreadyInProgress"`
}

type conflictsInput struct{}

type conflictsOutput struct {
	Body conflictsResponse
}

type conflictsResponse struct {
	Conflicts []sync.ConflictRecord `json:"conflicts"`
}

type resolveInput struct {
	ID   string `path:"id" doc:"ID изменения в конфликте"`
	Body resolveRequest
}

type resolveRequest struct {
	Choice sync.Choice `json:"choice" enum:"local,server,discard" doc:"local - перезаписать сервер, server - принять серверную версию, discard - выбросить изменение"`
}

type failedInput struct{}

type failedOutput struct {
	Body failedResponse
}

type failedResponse struct {
	Failed []sync.FailedItem `json:"failed"`
}

type dismissInput struct {
	ID string `path:"id" doc:"ID неудачного изменения"`
}

type response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type output struct {
	Body response
}
