package models

// All lists every model migrated at startup
func All() []interface{} {
	return []interface{}{
		&Member{},
		&Bounty{},
		&BountyHolder{},
		&BountyApplication{},
		&BountyBan{},
		&OracleRequest{},
		&BountyEvent{},
		&Item{},
		&ItemPurchase{},
		&Announcement{},
	}
}
