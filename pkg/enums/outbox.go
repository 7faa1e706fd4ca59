package enums

// OutboxEventType names the domain events emitted through the transactional
// outbox.
type OutboxEventType string

const (
	OutboxEventOrderFinalized   OutboxEventType = "order.finalized"
	OutboxEventCheckoutExpired  OutboxEventType = "checkout.expired"
	OutboxEventCartMergedOnAuth OutboxEventType = "cart.merged"
)

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}
