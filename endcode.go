package fins

import (
	"fmt"
	"strings"
)

// End codes produced by the simulator.
const (
	EndCodeNormalCompletion           uint16 = 0x0000
	EndCodeServiceInterrupted         uint16 = 0x0001
	EndCodeUndefinedCommand           uint16 = 0x0401
	EndCodeNotSupportedByModelVersion uint16 = 0x0402
	EndCodeCommandTooShort            uint16 = 0x1002
	EndCodeAreaClassificationMissing  uint16 = 0x1101
	EndCodeAddressRangeExceeded       uint16 = 0x1103
	EndCodeParameterError             uint16 = 0x110C
)

// ResponseCodes maps the 4 hex digit response code of a reply to its
// description. Keys are lower case, as reported in Reply.ResponseCode.
var ResponseCodes = map[string]string{
	"0000": "Completed normally",
	"0001": "Service was interrupted",
	"0101": "Local node not part of Network",
	"0102": "Token time-out, node number too large",
	"0103": "Number of transmit retries exceeded",
	"0104": "Maximum number of frames exceeded",
	"0105": "Node number setting error (range)",
	"0106": "Node number duplication error",
	"0201": "Destination node not part of Network",
	"0202": "No node with the specified unit address",
	"0203": "Third node not part of Network",
	"0204": "Busy error, destination node busy",
	"0205": "Response time-out",
	"0301": "Error occurred in the communications controller",
	"0302": "CPU error occurred in the PLC at the destination node",
	"0303": "A controller error has prevented a normal response",
	"0304": "Unit number setting error",
	"0401": "An undefined command has been used",
	"0402": "Cannot process command because the specified unit model or version is wrong",
	"0501": "Destination node number is not set in the routing table",
	"0502": "Routing table isn't registered",
	"0503": "Routing table error",
	"0504": "Maximum number of relay nodes exceeded",
	"1001": "The command is longer than the maximum permissible length",
	"1002": "The command is shorter than the minimum permissible length",
	"1003": "The designated number of data items differs from the actual number",
	"1004": "An incorrect command format has been used",
	"1005": "An incorrect header has been used",
	"1101": "Memory area code invalid or DM is not available",
	"1102": "Access size is wrong in command",
	"1103": "First address in inaccessible area",
	"1104": "The end of specified word range exceeds acceptable range",
	"1106": "A non-existent program number",
	"1109": "The size of data items in command block are wrong",
	"110a": "The IOM break function cannot be executed",
	"110b": "The response block is longer than the max length",
	"110c": "An incorrect parameter code has been specified",
	"2002": "The data is protected",
	"2003": "Registered table does not exist",
	"2004": "Search data does not exist",
	"2005": "Non-existent program number",
	"2006": "Non-existent file",
	"2007": "Verification error",
	"2101": "Specified area is read-only",
	"2102": "The data is protected",
	"2103": "Too many files open",
	"2105": "Non-existent program number",
	"2106": "Non-existent file",
	"2107": "File name already exists",
	"2108": "Data cannot be changed",
	"2201": "The mode is wrong (executing)",
	"2202": "The mode is wrong (stopped)",
	"2203": "The PLC is in the PROGRAM mode",
	"2204": "The PLC is in the DEBUG mode",
	"2205": "The PLC is in the MONITOR mode",
	"2206": "The PLC is in the RUN mode",
	"2207": "The specified node is not the control node",
	"2208": "The mode is wrong and the step cannot be executed",
	"2301": "The file device does not exist where specified",
	"2302": "The specified memory does not exist",
	"2303": "No clock exists",
	"2401": "The data link table is incorrect",
	"2502": "Parity or checksum error occurred",
	"2503": "I/O setting error",
	"2504": "Too many I/O points",
	"2505": "CPU bus error",
	"2506": "I/O duplication error",
	"2507": "I/O bus error",
	"2509": "SYSMAC BUS/2 error",
	"250a": "CPU bus unit error",
	"250d": "SYSMAC BUS number duplication",
	"250f": "Memory error",
	"2510": "SYSMAC BUS terminator missing",
	"2601": "The specified area is not protected",
	"2602": "An incorrect password has been specified",
	"2604": "The specified area is protected",
	"2605": "The service is being executed",
	"2606": "The service is not being executed",
	"2607": "Service cannot be executed from local node",
	"2608": "Service cannot be executed, settings are incorrect",
	"2609": "Service cannot be executed, incorrect settings in command data",
	"260a": "The specified action has already been registered",
	"260b": "Cannot clear error, error still exists",
	"3001": "The access right is held by another device",
	"4001": "Command aborted with ABORT command",
}

// relay and network flag bits that may be set on top of an end code
const endCodeFlagMask uint16 = 0x80C0

// ResponseText describes a 4 hex digit response code. Relay/network flag
// bits are ignored when the exact code is not in the table.
func ResponseText(code string) string {
	code = strings.ToLower(code)
	if text, ok := ResponseCodes[code]; ok {
		return text
	}
	var v uint16
	if _, err := fmt.Sscanf(code, "%04x", &v); err == nil {
		if text, ok := ResponseCodes[fmt.Sprintf("%04x", v&^endCodeFlagMask)]; ok {
			return text
		}
	}
	return "Unknown response code " + code
}
