package events

// EventCollector accumulates domain events raised while a use case runs so
// they can be published once the surrounding transaction has committed.
type EventCollector struct {
	events []DomainEvent
}

// Record appends domain events to the collector.
func (c *EventCollector) Record(evts ...DomainEvent) {
	c.events = append(c.events, evts...)
}

// Events returns the collected domain events without clearing them.
func (c *EventCollector) Events() []DomainEvent {
	return c.events
}

// Len returns the number of collected events.
func (c *EventCollector) Len() int {
	return len(c.events)
}

// ClearEvents returns the collected domain events and clears the internal slice.
func (c *EventCollector) ClearEvents() []DomainEvent {
	collected := c.events
	c.events = nil
	return collected
}
