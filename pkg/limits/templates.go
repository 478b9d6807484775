package limits

// DefaultTemplates returns the built-in plan templates. They are seeded
// into the store on first start if no template with the same name exists.
func DefaultTemplates() []LimitTemplate {
	return []LimitTemplate{
		{
			Name:        "Basic Plan",
			Description: "Basic user with standard limits",
			Default:     true,
			Rules: []TemplateRule{
				{Kind: KindData, Threshold: 10 * 1024 * 1024 * 1024, Action: ActionNotify}, // 10 GiB
				{Kind: KindTime, Threshold: 30 * 24 * 60 * 60, Action: ActionNotify},       // 30 days
			},
		},
		{
			Name:        "Premium Plan",
			Description: "Premium user with higher limits",
			Rules: []TemplateRule{
				{Kind: KindData, Threshold: 100 * 1024 * 1024 * 1024, Action: ActionNotify}, // 100 GiB
				{Kind: KindTime, Threshold: 90 * 24 * 60 * 60, Action: ActionNotify},        // 90 days
				{Kind: KindConnections, Threshold: 5, Action: ActionNotify},
			},
		},
		{
			Name:        "Enterprise Plan",
			Description: "Enterprise user with maximum limits",
			Rules: []TemplateRule{
				{Kind: KindData, Threshold: 1000 * 1024 * 1024 * 1024, Action: ActionNotify}, // 1 TB
				{Kind: KindTime, Threshold: 365 * 24 * 60 * 60, Action: ActionNotify},        // 365 days
				{Kind: KindConnections, Threshold: 20, Action: ActionNotify},
				{Kind: KindSpeed, Threshold: 100 * 1024 * 1024, Action: ActionThrottle}, // 100 MiB/s
			},
		},
	}
}
