package services

func TrackedMarketLocks(s *MarketService) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
