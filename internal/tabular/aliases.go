package tabular

// Column aliases, in lookup priority order.
var (
	OnTimeDeliveryColumns = []string{"On-Time Delivery (%)", "On-Time Delivery", "On Time Delivery (%)", "On Time Delivery", "OnTimeDelivery", "on_time_delivery"}
	DefectRateColumns     = []string{"Defect Rate (%)", "Defect Rate", "DefectRate", "defect_rate"}
	CostVarianceColumns   = []string{"Cost Variance (%)", "Cost Variance", "CostVariance", "cost_variance"}
	AvgLeadTimeColumns    = []string{"Avg Lead Time (days)", "Average Lead Time", "Lead Time (days)", "Lead Time", "lead_time", "leadTime"}

	// LeadTimeColumns is the order used when estimating a BOM line's lead time.
	LeadTimeColumns = []string{
		"Lead Time", "Lead Time (days)", "Avg Lead Time (days)", "Lead Time Days", "Leadtime",
		"lead_time", "leadTime", "Delivery Time", "Delivery Time (days)", "Supplier Lead Time",
	}

	SupplierColumns     = []string{"Supplier", "Vendor", "Distributor"}
	CategoryColumns     = []string{"Category", "Component Category", "Type"}
	PartNumberColumns   = []string{"Manufacturer Part #", "Part Number", "MPN", "Part #"}
	DescriptionColumns  = []string{"Description", "Part Description", "Component"}
	ManufacturerColumns = []string{"Manufacturer", "Mfr", "Brand"}
	UnitCostColumns     = []string{"Unit Cost (USD)", "Unit Cost", "Unit Price", "Price"}
	TotalColumns        = []string{"Total", "Total Cost", "Extended Cost"}
	QuantityColumns     = []string{"Quantity", "Qty"}
)
