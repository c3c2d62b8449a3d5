package sync

const noOutcomeMessage = "no outcome reported"

// OutcomesFor раскладывает ответ транспорта на исходы по каждому элементу пакета.
// Структурированные исходы важнее сетевой ошибки, элемент без исхода
// считается повторяемым.
func OutcomesFor(batch *Batch, resp *BatchResponse, sendErr error) []Outcome {
	if batch == nil {
		return nil
	}

	inBatch := make(map[string]struct{}, len(batch.Items))
	for _, item := range batch.Items {
		inBatch[item.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(batch.Items))
	outcomes := make([]Outcome, 0, len(batch.Items))
	add := func(o Outcome) {
		if _, ok := inBatch[o.ChangeID]; !ok {
			return
		}
		if _, dup := seen[o.ChangeID]; dup {
			return
		}
		seen[o.ChangeID] = struct{}{}
		outcomes = append(outcomes, o)
	}

	if resp != nil {
		for _, id := range resp.SyncedIDs {
			add(Outcome{ChangeID: id, Result: ResultSynced})
		}
		for _, c := range resp.Conflicts {
			add(Outcome{
				ChangeID:      c.ID,
				Result:        ResultConflict,
				ServerVersion: c.ServerVersion,
				ServerPayload: c.ServerPayload,
				Message:       c.Message,
			})
		}
		for _, e := range resp.Errors {
			result := ResultPermanentError
			if e.Retryable {
				result = ResultRetryableError
			}
			add(Outcome{ChangeID: e.ID, Result: result, Message: e.Message})
		}
	}

	msg := noOutcomeMessage
	if sendErr != nil {
		msg = sendErr.Error()
	}
	for _, item := range batch.Items {
		add(Outcome{ChangeID: item.ID, Result: ResultRetryableError, Message: msg})
	}

	return outcomes
}
