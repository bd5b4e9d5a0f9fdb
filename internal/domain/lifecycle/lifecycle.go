// Пакет lifecycle — конечные автоматы операций StorageGateway.
//
// Два жизненных цикла:
//   - upload: received → bytes_persisted → metadata_persisted → done,
//     из любого незавершённого состояния — failed
//   - delete: requested → meta_found → bytes_deleted → record_deleted,
//     либо not_found (записи нет) / partial_failure (запись не удалена)
//
// Автомат живёт в пределах одного запроса и не разделяется между
// горутинами. Итоговое состояние и состояние отказа попадают в логи
// и метрики, по ним видно, на каком шаге оборвалась операция.
package lifecycle

import (
	"fmt"
	"time"
)

// Operation — операция, для которой построен автомат.
type Operation string

const (
	OpUpload Operation = "upload"
	OpDelete Operation = "delete"
)

// State — состояние операции.
type State string

// Состояния upload.
const (
	Received          State = "received"
	BytesPersisted    State = "bytes_persisted"
	MetadataPersisted State = "metadata_persisted"
	Done              State = "done"
	Failed            State = "failed"
)

// Состояния delete.
const (
	Requested      State = "requested"
	MetaFound      State = "meta_found"
	BytesDeleted   State = "bytes_deleted"
	RecordDeleted  State = "record_deleted"
	NotFound       State = "not_found"
	PartialFailure State = "partial_failure"
)

// TransitionRecord — запись о переходе между состояниями.
type TransitionRecord struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// validTransitions — матрица допустимых переходов по операциям.
// Ключ — текущее состояние, значение — набор допустимых целевых.
var validTransitions = map[Operation]map[State]map[State]bool{
	OpUpload: {
		Received:          {BytesPersisted: true, Failed: true},
		BytesPersisted:    {MetadataPersisted: true, Failed: true},
		MetadataPersisted: {Done: true},
		Done:              {},
		Failed:            {},
	},
	OpDelete: {
		Requested: {MetaFound: true, NotFound: true, PartialFailure: true},
		// Ошибка ввода-вывода бэкенда не останавливает удаление записи:
		// meta_found → bytes_deleted выполняется и при best-effort отказе.
		MetaFound:      {BytesDeleted: true},
		BytesDeleted:   {RecordDeleted: true, NotFound: true, PartialFailure: true},
		RecordDeleted:  {},
		NotFound:       {},
		PartialFailure: {},
	},
}

// initialStates — начальное состояние каждой операции.
var initialStates = map[Operation]State{
	OpUpload: Received,
	OpDelete: Requested,
}

// Machine — автомат одной операции.
type Machine struct {
	op       Operation
	current  State
	failedAt State
	history  []TransitionRecord
}

// New создаёт автомат в начальном состоянии операции.
func New(op Operation) (*Machine, error) {
	initial, ok := initialStates[op]
	if !ok {
		return nil, fmt.Errorf("недопустимая операция: %q", op)
	}
	return &Machine{op: op, current: initial}, nil
}

// MustNew — New для операций, известных на этапе компиляции.
func MustNew(op Operation) *Machine {
	m, err := New(op)
	if err != nil {
		panic(err)
	}
	return m
}

// Current возвращает текущее состояние.
func (m *Machine) Current() State { return m.current }

// Operation возвращает операцию автомата.
func (m *Machine) Operation() Operation { return m.op }

// FailedAt возвращает состояние, из которого операция перешла
// в терминальное состояние отказа. Пусто, если отказа не было.
func (m *Machine) FailedAt() State { return m.failedAt }

// IsTerminal сообщает, завершена ли операция.
func (m *Machine) IsTerminal() bool {
	return len(validTransitions[m.op][m.current]) == 0
}

// CanTransitionTo проверяет, допустим ли переход.
func (m *Machine) CanTransitionTo(target State) bool {
	return validTransitions[m.op][m.current][target]
}

// TransitionTo выполняет переход. Недопустимый переход — *TransitionError,
// состояние не меняется.
func (m *Machine) TransitionTo(target State) error {
	if !m.CanTransitionTo(target) {
		return &TransitionError{
			Op:   m.op,
			From: m.current,
			To:   target,
		}
	}

	if isFailure(target) {
		m.failedAt = m.current
	}
	m.history = append(m.history, TransitionRecord{
		From:      m.current,
		To:        target,
		Timestamp: time.Now().UTC(),
	})
	m.current = target
	return nil
}

// History возвращает историю переходов (копия).
func (m *Machine) History() []TransitionRecord {
	result := make([]TransitionRecord, len(m.history))
	copy(result, m.history)
	return result
}

// Result возвращает метку результата для метрик: ok, not_found или error.
func (m *Machine) Result() string {
	switch m.current {
	case Done, RecordDeleted:
		return "ok"
	case NotFound:
		return "not_found"
	default:
		return "error"
	}
}

// TransitionError — недопустимый переход.
type TransitionError struct {
	Op   Operation
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("INVALID_TRANSITION: %s: переход %s → %s недопустим", e.Op, e.From, e.To)
}

func isFailure(s State) bool {
	return s == Failed || s == NotFound || s == PartialFailure
}
