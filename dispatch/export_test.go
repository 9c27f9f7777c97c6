package dispatch

// Parked reports whether a Check call is parked on id.
func Parked(p *Publishing, id SubscriptionID) bool {
	sub, err := p.lookup(id)
	if err != nil {
		return false
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.waiter != nil
}
