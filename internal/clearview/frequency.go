package clearview

// FrequencyNone is the sentinel "no frequency assigned" value used by the
// race timer for disabled seats. Band/channel commands are suppressed for
// it; the caller decides what else still happens (pilot warnings do).
const FrequencyNone = 0

// BandChannel is the tuning command a ClearView receiver accepts in place
// of a raw frequency. Channel is 1-based within the band.
type BandChannel struct {
	Band    string `json:"band"`
	Channel int    `json:"channel"`
}

// bandPlan maps each supported band letter to its channel frequencies in
// MHz, channel 1 first. This is the standard 5.8 GHz analogue FPV plan the
// receiver firmware tunes by.
var bandPlan = map[string][8]int{
	"A": {5865, 5845, 5825, 5805, 5785, 5765, 5745, 5725},
	"B": {5733, 5752, 5771, 5790, 5809, 5828, 5847, 5866},
	"E": {5705, 5685, 5665, 5645, 5885, 5905, 5925, 5945},
	"F": {5740, 5760, 5780, 5800, 5820, 5840, 5860, 5880},
	"R": {5658, 5695, 5732, 5769, 5806, 5843, 5880, 5917},
	"L": {5362, 5399, 5436, 5473, 5510, 5547, 5584, 5621},
}

// bandOrder fixes lookup precedence for frequencies present in more than
// one band (5880 is both F8 and R7; receivers expect the F designation).
var bandOrder = []string{"F", "R", "A", "B", "E", "L"}

// ToBandChannel translates a frequency in MHz to the receiver's band and
// channel designation.
//
// Returns:
//   - BandChannel: the tuning command for the frequency
//   - bool: false if no band in the plan carries the frequency (including
//     FrequencyNone, which is not a tunable frequency)
func ToBandChannel(frequency int) (BandChannel, bool) {
	for _, band := range bandOrder {
		channels := bandPlan[band]
		for i, f := range channels {
			if f == frequency {
				return BandChannel{Band: band, Channel: i + 1}, true
			}
		}
	}
	return BandChannel{}, false
}
