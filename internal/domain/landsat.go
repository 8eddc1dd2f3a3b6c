package domain

// Landsat Collection 2 Level-2 band names and radiometric constants. The
// values come from the USGS C2L2 product guide; see the package doc for how
// they enter the pipeline.
const (
	BandQA      = "QA_PIXEL"
	BandThermal = "ST_B10"
	// BandLST is the stable alias the threshold engine expects after
	// conversion; callers rename composite output to this before reducing.
	BandLST = "LST"

	// QA_PIXEL bit positions.
	ShadowBit uint = 3
	CloudBit  uint = 5

	// Exclusive validity bounds for thermal DN. 0 is the no-data fill and
	// 65535 the saturation sentinel.
	ThermalDNLow  = 0
	ThermalDNHigh = 65535
)

var (
	// ThermalToKelvin converts ST_B10 digital numbers to Kelvin.
	ThermalToKelvin = Linear{Scale: 0.00341802, Offset: 149.0}

	// ReflectanceScale converts SR_B* digital numbers to surface reflectance.
	ReflectanceScale = Linear{Scale: 0.0000275, Offset: -0.2}

	// DefaultQAChecks rejects pixels flagged as cloud shadow or cloud.
	DefaultQAChecks = []BitCheck{
		{Bit: ShadowBit, MustBeClear: true},
		{Bit: CloudBit, MustBeClear: true},
	}
)
