package ade7816

import "eemon-go/errcode"

// Register is one entry of the chip register map.
type Register struct {
	Name string
	Addr uint16
	Fmt  Format
}

// Register names used directly by the driver.
const (
	RegDummy    = "DUMMY"
	RegConfig2  = "CONFIG2"
	RegRun      = "RUN"
	RegStatus0  = "STATUS0"
	RegStatus1  = "STATUS1"
	RegMask0    = "MASK0"
	RegMask1    = "MASK1"
	RegPeriod   = "PERIOD"
	RegVRMS     = "VRMS"
	RegWTHR1    = "WTHR1"
	RegWTHR0    = "WTHR0"
	RegVARTHR1  = "VARTHR1"
	RegVARTHR0  = "VARTHR0"
	RegLineCyc  = "LINECYC"
	RegLCycMode = "LCYCMODE"
	RegVersion  = "VERSION"
)

// STATUS0 / MASK0 bits.
const (
	StatusAEHF    uint32 = 1 << 0 // active energy register half full
	StatusREHF    uint32 = 1 << 1 // reactive energy register half full
	StatusLEnergy uint32 = 1 << 5 // end of a line-cycle accumulation period
	StatusREVPSUM uint32 = 1 << 6
)

// STATUS1 bits.
const (
	Status1ZXTO uint32 = 1 << 3 // zero-crossing timeout
	Status1Sag  uint32 = 1 << 13
	Status1RSTD uint32 = 1 << 15 // reset done
)

// Registers is the full register map keyed by name.
var Registers = map[string]Register{
	"VGAIN":       {Name: "VGAIN", Addr: 0x4380, Fmt: Fmt32ZPSE},       // voltage gain
	"IAGAIN":      {Name: "IAGAIN", Addr: 0x4381, Fmt: Fmt32ZPSE},      // current gain, ch A
	"IBGAIN":      {Name: "IBGAIN", Addr: 0x4382, Fmt: Fmt32ZPSE},      // current gain, ch B
	"ICGAIN":      {Name: "ICGAIN", Addr: 0x4383, Fmt: Fmt32ZPSE},      // current gain, ch C
	"IDGAIN":      {Name: "IDGAIN", Addr: 0x4384, Fmt: Fmt32ZPSE},      // current gain, ch D
	"IEGAIN":      {Name: "IEGAIN", Addr: 0x4385, Fmt: Fmt32ZPSE},      // current gain, ch E
	"IFGAIN":      {Name: "IFGAIN", Addr: 0x4386, Fmt: Fmt32ZPSE},      // current gain, ch F
	"DICOEFF":     {Name: "DICOEFF", Addr: 0x4388, Fmt: Fmt32ZPSE},     // digital integrator coefficient
	"HPFDIS":      {Name: "HPFDIS", Addr: 0x4389, Fmt: Fmt32ZPSE},      // high-pass filter disable
	"VRMSOS":      {Name: "VRMSOS", Addr: 0x438A, Fmt: Fmt32ZPSE},      // voltage rms offset
	"IARMSOS":     {Name: "IARMSOS", Addr: 0x438B, Fmt: Fmt32ZPSE},     // current rms offset, ch A
	"IBRMSOS":     {Name: "IBRMSOS", Addr: 0x438C, Fmt: Fmt32ZPSE},     // current rms offset, ch B
	"ICRMSOS":     {Name: "ICRMSOS", Addr: 0x438D, Fmt: Fmt32ZPSE},     // current rms offset, ch C
	"IDRMSOS":     {Name: "IDRMSOS", Addr: 0x438E, Fmt: Fmt32ZPSE},     // current rms offset, ch D
	"IERMSOS":     {Name: "IERMSOS", Addr: 0x438F, Fmt: Fmt32ZPSE},     // current rms offset, ch E
	"IFRMSOS":     {Name: "IFRMSOS", Addr: 0x4390, Fmt: Fmt32ZPSE},     // current rms offset, ch F
	"AWGAIN":      {Name: "AWGAIN", Addr: 0x4391, Fmt: Fmt32ZPSE},      // active power gain, ch A
	"AWATTOS":     {Name: "AWATTOS", Addr: 0x4392, Fmt: Fmt32ZPSE},     // active power offset, ch A
	"BWGAIN":      {Name: "BWGAIN", Addr: 0x4393, Fmt: Fmt32ZPSE},      // active power gain, ch B
	"BWATTOS":     {Name: "BWATTOS", Addr: 0x4394, Fmt: Fmt32ZPSE},     // active power offset, ch B
	"CWGAIN":      {Name: "CWGAIN", Addr: 0x4395, Fmt: Fmt32ZPSE},      // active power gain, ch C
	"CWATTOS":     {Name: "CWATTOS", Addr: 0x4396, Fmt: Fmt32ZPSE},     // active power offset, ch C
	"DWGAIN":      {Name: "DWGAIN", Addr: 0x4397, Fmt: Fmt32ZPSE},      // active power gain, ch D
	"DWATTOS":     {Name: "DWATTOS", Addr: 0x4398, Fmt: Fmt32ZPSE},     // active power offset, ch D
	"EWGAIN":      {Name: "EWGAIN", Addr: 0x4399, Fmt: Fmt32ZPSE},      // active power gain, ch E
	"EWATTOS":     {Name: "EWATTOS", Addr: 0x439A, Fmt: Fmt32ZPSE},     // active power offset, ch E
	"FWGAIN":      {Name: "FWGAIN", Addr: 0x439B, Fmt: Fmt32ZPSE},      // active power gain, ch F
	"FWATTOS":     {Name: "FWATTOS", Addr: 0x439C, Fmt: Fmt32ZPSE},     // active power offset, ch F
	"AVARGAIN":    {Name: "AVARGAIN", Addr: 0x439D, Fmt: Fmt32ZPSE},    // reactive power gain, ch A
	"AVAROS":      {Name: "AVAROS", Addr: 0x439E, Fmt: Fmt32ZPSE},      // reactive power offset, ch A
	"BVARGAIN":    {Name: "BVARGAIN", Addr: 0x439F, Fmt: Fmt32ZPSE},    // reactive power gain, ch B
	"BVAROS":      {Name: "BVAROS", Addr: 0x43A0, Fmt: Fmt32ZPSE},      // reactive power offset, ch B
	"CVARGAIN":    {Name: "CVARGAIN", Addr: 0x43A1, Fmt: Fmt32ZPSE},    // reactive power gain, ch C
	"CVAROS":      {Name: "CVAROS", Addr: 0x43A2, Fmt: Fmt32ZPSE},      // reactive power offset, ch C
	"DVARGAIN":    {Name: "DVARGAIN", Addr: 0x43A3, Fmt: Fmt32ZPSE},    // reactive power gain, ch D
	"DVAROS":      {Name: "DVAROS", Addr: 0x43A4, Fmt: Fmt32ZPSE},      // reactive power offset, ch D
	"EVARGAIN":    {Name: "EVARGAIN", Addr: 0x43A5, Fmt: Fmt32ZPSE},    // reactive power gain, ch E
	"EVAROS":      {Name: "EVAROS", Addr: 0x43A6, Fmt: Fmt32ZPSE},      // reactive power offset, ch E
	"FVARGAIN":    {Name: "FVARGAIN", Addr: 0x43A7, Fmt: Fmt32ZPSE},    // reactive power gain, ch F
	"FVAROS":      {Name: "FVAROS", Addr: 0x43A8, Fmt: Fmt32ZPSE},      // reactive power offset, ch F
	"WTHR1":       {Name: "WTHR1", Addr: 0x43AB, Fmt: Fmt32ZP},         // active energy threshold [47:24]
	"WTHR0":       {Name: "WTHR0", Addr: 0x43AC, Fmt: Fmt32ZP},         // active energy threshold [23:0]
	"VARTHR1":     {Name: "VARTHR1", Addr: 0x43AD, Fmt: Fmt32ZP},       // reactive energy threshold [47:24]
	"VARTHR0":     {Name: "VARTHR0", Addr: 0x43AE, Fmt: Fmt32ZP},       // reactive energy threshold [23:0]
	"APNOLOAD":    {Name: "APNOLOAD", Addr: 0x43AF, Fmt: Fmt32ZP},      // active power no-load threshold
	"VARNOLOAD":   {Name: "VARNOLOAD", Addr: 0x43B0, Fmt: Fmt32ZPSE},   // reactive power no-load threshold
	"PCF_A_COEFF": {Name: "PCF_A_COEFF", Addr: 0x43B1, Fmt: Fmt32ZPSE}, // phase calibration, ch A
	"PCF_B_COEFF": {Name: "PCF_B_COEFF", Addr: 0x43B2, Fmt: Fmt32ZPSE}, // phase calibration, ch B
	"PCF_C_COEFF": {Name: "PCF_C_COEFF", Addr: 0x43B3, Fmt: Fmt32ZPSE}, // phase calibration, ch C
	"PCF_D_COEFF": {Name: "PCF_D_COEFF", Addr: 0x43B4, Fmt: Fmt32ZPSE}, // phase calibration, ch D
	"PCF_E_COEFF": {Name: "PCF_E_COEFF", Addr: 0x43B5, Fmt: Fmt32ZPSE}, // phase calibration, ch E
	"PCF_F_COEFF": {Name: "PCF_F_COEFF", Addr: 0x43B6, Fmt: Fmt32ZPSE}, // phase calibration, ch F
	"VRMS":        {Name: "VRMS", Addr: 0x43C0, Fmt: Fmt32ZP},          // voltage rms
	"IARMS":       {Name: "IARMS", Addr: 0x43C1, Fmt: Fmt32ZP},         // current rms, ch A
	"IBRMS":       {Name: "IBRMS", Addr: 0x43C2, Fmt: Fmt32ZP},         // current rms, ch B
	"ICRMS":       {Name: "ICRMS", Addr: 0x43C3, Fmt: Fmt32ZP},         // current rms, ch C
	"IDRMS":       {Name: "IDRMS", Addr: 0x43C4, Fmt: Fmt32ZP},         // current rms, ch D
	"IERMS":       {Name: "IERMS", Addr: 0x43C5, Fmt: Fmt32ZP},         // current rms, ch E
	"IFRMS":       {Name: "IFRMS", Addr: 0x43C6, Fmt: Fmt32ZP},         // current rms, ch F
	"RUN":         {Name: "RUN", Addr: 0xE228, Fmt: Fmt16U},            // DSP start/stop
	"AWATTHR":     {Name: "AWATTHR", Addr: 0xE400, Fmt: Fmt32S},        // active energy accumulator, ch A
	"BWATTHR":     {Name: "BWATTHR", Addr: 0xE401, Fmt: Fmt32S},        // active energy accumulator, ch B
	"CWATTHR":     {Name: "CWATTHR", Addr: 0xE402, Fmt: Fmt32S},        // active energy accumulator, ch C
	"DWATTHR":     {Name: "DWATTHR", Addr: 0xE403, Fmt: Fmt32S},        // active energy accumulator, ch D
	"EWATTHR":     {Name: "EWATTHR", Addr: 0xE404, Fmt: Fmt32S},        // active energy accumulator, ch E
	"FWATTHR":     {Name: "FWATTHR", Addr: 0xE405, Fmt: Fmt32S},        // active energy accumulator, ch F
	"AVARHR":      {Name: "AVARHR", Addr: 0xE406, Fmt: Fmt32S},         // reactive energy accumulator, ch A
	"BVARHR":      {Name: "BVARHR", Addr: 0xE407, Fmt: Fmt32S},         // reactive energy accumulator, ch B
	"CVARHR":      {Name: "CVARHR", Addr: 0xE408, Fmt: Fmt32S},         // reactive energy accumulator, ch C
	"DVARHR":      {Name: "DVARHR", Addr: 0xE409, Fmt: Fmt32S},         // reactive energy accumulator, ch D
	"EVARHR":      {Name: "EVARHR", Addr: 0xE40A, Fmt: Fmt32S},         // reactive energy accumulator, ch E
	"FVARHR":      {Name: "FVARHR", Addr: 0xE40B, Fmt: Fmt32S},         // reactive energy accumulator, ch F
	"IPEAK":       {Name: "IPEAK", Addr: 0xE500, Fmt: Fmt32U},          // current peak
	"VPEAK":       {Name: "VPEAK", Addr: 0xE501, Fmt: Fmt32U},          // voltage peak
	"STATUS0":     {Name: "STATUS0", Addr: 0xE502, Fmt: Fmt32U},        // interrupt status 0
	"STATUS1":     {Name: "STATUS1", Addr: 0xE503, Fmt: Fmt32U},        // interrupt status 1
	"OILVL":       {Name: "OILVL", Addr: 0xE507, Fmt: Fmt32ZP},         // overcurrent threshold
	"OVLVL":       {Name: "OVLVL", Addr: 0xE508, Fmt: Fmt32ZP},         // overvoltage threshold
	"SAGLVL":      {Name: "SAGLVL", Addr: 0xE509, Fmt: Fmt32ZP},        // voltage sag threshold
	"MASK0":       {Name: "MASK0", Addr: 0xE50A, Fmt: Fmt32U},          // interrupt enable 0
	"MASK1":       {Name: "MASK1", Addr: 0xE50B, Fmt: Fmt32U},          // interrupt enable 1
	"IAWV_IDWV":   {Name: "IAWV_IDWV", Addr: 0xE50C, Fmt: Fmt32SE},     // instantaneous current, ch A/D
	"IBWV_IEWV":   {Name: "IBWV_IEWV", Addr: 0xE50D, Fmt: Fmt32SE},     // instantaneous current, ch B/E
	"ICWV_IFWV":   {Name: "ICWV_IFWV", Addr: 0xE50E, Fmt: Fmt32SE},     // instantaneous current, ch C/F
	"VWV":         {Name: "VWV", Addr: 0xE510, Fmt: Fmt32SE},           // instantaneous voltage
	"CHECKSUM":    {Name: "CHECKSUM", Addr: 0xE51F, Fmt: Fmt32U},       // configuration checksum
	"CHSTATUS":    {Name: "CHSTATUS", Addr: 0xE600, Fmt: Fmt16U},       // channel peak
	"ANGLE0":      {Name: "ANGLE0", Addr: 0xE601, Fmt: Fmt16U},         // time delay 0
	"ANGLE1":      {Name: "ANGLE1", Addr: 0xE602, Fmt: Fmt16U},         // time delay 1
	"ANGLE2":      {Name: "ANGLE2", Addr: 0xE603, Fmt: Fmt16U},         // time delay 2
	"PERIOD":      {Name: "PERIOD", Addr: 0xE607, Fmt: Fmt16U},         // line period
	"CHNOLOAD":    {Name: "CHNOLOAD", Addr: 0xE608, Fmt: Fmt16U},       // channel no-load status
	"LINECYC":     {Name: "LINECYC", Addr: 0xE60C, Fmt: Fmt16U},        // line-cycle accumulation count
	"ZXTOUT":      {Name: "ZXTOUT", Addr: 0xE60D, Fmt: Fmt16U},         // zero-crossing timeout
	"COMPMODE":    {Name: "COMPMODE", Addr: 0xE60E, Fmt: Fmt16U},       // computation mode
	"GAIN":        {Name: "GAIN", Addr: 0xE60F, Fmt: Fmt16U},           // PGA gains
	"CHSIGN":      {Name: "CHSIGN", Addr: 0xE617, Fmt: Fmt16U},         // power sign
	"CONFIG":      {Name: "CONFIG", Addr: 0xE618, Fmt: Fmt16U},         // configuration
	"MMODE":       {Name: "MMODE", Addr: 0xE700, Fmt: Fmt8U},           // measurement mode
	"ACCMODE":     {Name: "ACCMODE", Addr: 0xE701, Fmt: Fmt8U},         // accumulation mode
	"LCYCMODE":    {Name: "LCYCMODE", Addr: 0xE702, Fmt: Fmt8U},        // line accumulation mode
	"PEAKCYC":     {Name: "PEAKCYC", Addr: 0xE703, Fmt: Fmt8U},         // peak detection half cycles
	"SAGCYC":      {Name: "SAGCYC", Addr: 0xE704, Fmt: Fmt8U},          // sag detection half cycles
	"HSDC_CFG":    {Name: "HSDC_CFG", Addr: 0xE706, Fmt: Fmt8U},        // HSDC configuration
	"VERSION":     {Name: "VERSION", Addr: 0xE707, Fmt: Fmt8U},         // die version
	"CONFIG2":     {Name: "CONFIG2", Addr: 0xEC01, Fmt: Fmt8U},         // configuration 2, write locks the serial port
	"DUMMY":       {Name: "DUMMY", Addr: 0xEBFF, Fmt: Fmt8U},           // no effect; used for protocol-select writes
}

// Lookup returns the register descriptor for name.
func Lookup(name string) (Register, error) {
	r, ok := Registers[name]
	if !ok {
		return Register{}, &errcode.E{C: errcode.UnknownRegister, Op: "ade7816.lookup", Msg: name}
	}
	return r, nil
}

// currentRMS maps a channel letter to its rms register.
func currentRMS(ch byte) (string, bool) {
	if ch < 'A' || ch > 'F' {
		return "", false
	}
	return "I" + string(ch) + "RMS", true
}

// activeEnergy maps a channel letter to its active energy accumulator.
func activeEnergy(ch byte) (string, bool) {
	if ch < 'A' || ch > 'F' {
		return "", false
	}
	return string(ch) + "WATTHR", true
}

// phaseCoeffs lists the phase calibration registers in write order.
var phaseCoeffs = [...]string{
	"PCF_A_COEFF", "PCF_B_COEFF", "PCF_C_COEFF",
	"PCF_D_COEFF", "PCF_E_COEFF", "PCF_F_COEFF",
}

