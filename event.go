package datagrid

// EventKind identifies one change-notification concern.
type EventKind uint8

const (
	EventDataChanged EventKind = iota
	EventSelectionChanged
	EventSelect    // a single row's selection membership changed
	EventSelectAll // toggle-all ran, whether or not membership changed
	EventCurrentRowChanged
	EventSortChanged
	EventFilterChanged
	EventExpandChanged
	EventColumnsChanged
	EventLayoutChanged
	EventRedraw
	EventReachedTop
	EventReachedBottom
	EventReachedLeft
	EventReachedRight
)

var eventNames = [...]string{
	EventDataChanged:       "data-changed",
	EventSelectionChanged:  "selection-changed",
	EventSelect:            "select",
	EventSelectAll:         "select-all",
	EventCurrentRowChanged: "current-row-changed",
	EventSortChanged:       "sort-changed",
	EventFilterChanged:     "filter-changed",
	EventExpandChanged:     "expand-changed",
	EventColumnsChanged:    "column-list-changed",
	EventLayoutChanged:     "layout-changed",
	EventRedraw:            "redraw",
	EventReachedTop:        "reached-top",
	EventReachedBottom:     "reached-bottom",
	EventReachedLeft:       "reached-left",
	EventReachedRight:      "reached-right",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is a single change notification. Value carries the new value, Old
// the previous one where that is meaningful, Row the row it concerns.
//
//	EventSelectionChanged  Value []Row
//	EventSelect            Value []Row, Row the toggled row
//	EventCurrentRowChanged Value Row, Old Row
//	EventSortChanged       Value []*Column
//	EventFilterChanged     Value map[ColumnID][]any
//	EventExpandChanged     Value bool, Row the toggled row
//	EventColumnsChanged    Value []*Column
type Event struct {
	Kind  EventKind
	Value any
	Old   any
	Row   Row
}

type listener struct {
	id uint64
	fn func(Event)
}

// emitter fans events out to subscribers in subscription order.
type emitter struct {
	listeners []listener
	nextID    uint64
}

// Subscribe adds a listener and returns a function that removes it.
func (e *emitter) Subscribe(fn func(Event)) func() {
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range e.listeners {
			if l.id != id {
				continue
			}
			// copy so an emit ranging over the old slice is unaffected
			next := make([]listener, 0, len(e.listeners)-1)
			next = append(next, e.listeners[:i]...)
			e.listeners = append(next, e.listeners[i+1:]...)
			return
		}
	}
}

func (e *emitter) emit(ev Event) {
	for _, l := range e.listeners {
		l.fn(ev)
	}
}
