package fins

import "fmt"

// ValidationInterceptor creates an interceptor that validates operation parameters
// before executing them. It checks for common mistakes like zero counts or empty writes.
//
// Example:
//
//	client.SetInterceptor(fins.ValidationInterceptor())
//
//	// This will fail validation
//	_, err := client.Read(ctx, "D00100", 0)
//	// Error: invalid read count: 0
func ValidationInterceptor() Interceptor {
	return ValidationInterceptorWithLimits(1000, 1000)
}

// ValidationInterceptorWithLimits creates a validation interceptor with custom limits
// maxReadCount: maximum number of items that can be read in a single operation
// maxWriteCount: maximum number of items that can be written in a single operation
//
// Example:
//
//	client.SetInterceptor(fins.ValidationInterceptorWithLimits(500, 500))
func ValidationInterceptorWithLimits(maxReadCount, maxWriteCount uint16) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		switch info.Operation {
		case OpRead:
			if info.Count == 0 {
				return nil, fmt.Errorf("invalid read count: 0")
			}
			if info.Count > maxReadCount {
				return nil, fmt.Errorf("read count too large: %d (max %d)", info.Count, maxReadCount)
			}

		case OpReadMultiple:
			if len(info.Addresses) == 0 {
				return nil, ErrNoAddresses
			}
			if len(info.Addresses) > int(maxReadCount) {
				return nil, fmt.Errorf("read count too large: %d (max %d)", len(info.Addresses), maxReadCount)
			}

		case OpWrite:
			if len(info.Data) == 0 {
				return nil, fmt.Errorf("invalid write data: empty")
			}
			if len(info.Data) > int(maxWriteCount) {
				return nil, fmt.Errorf("write count too large: %d (max %d)", len(info.Data), maxWriteCount)
			}

		case OpFill, OpTransfer:
			if info.Count == 0 {
				return nil, fmt.Errorf("invalid %s count: 0", info.Operation)
			}
			if info.Count > maxWriteCount {
				return nil, fmt.Errorf("%s count too large: %d (max %d)", info.Operation, info.Count, maxWriteCount)
			}
		}

		return c.Invoke(nil)
	}
}

// AddressRange bounds the word addresses allowed in one memory area.
type AddressRange struct {
	Min, Max uint16
}

// AddressRangeValidator creates an interceptor that validates address ranges
// It ensures operations only access allowed memory regions. Ranges are keyed
// by area letters as used in addresses ("D", "CB"). Run, Stop and Status
// carry no address and always pass.
//
// Example:
//
//	// Only allow DM area addresses 0-999
//	validator := fins.AddressRangeValidator(map[string]fins.AddressRange{
//		"D":  {Min: 0, Max: 999},
//		"DM": {Min: 0, Max: 999},
//	})
//	client.SetInterceptor(validator)
func AddressRangeValidator(allowedRanges map[string]AddressRange) Interceptor {
	check := func(address string, count uint16) error {
		addr, err := ParseAddress(address)
		if err != nil {
			return err
		}
		addrRange, allowed := allowedRanges[addr.Area]
		if !allowed {
			return fmt.Errorf("memory area %s is not allowed", addr.Area)
		}
		if addr.Word < addrRange.Min || addr.Word > addrRange.Max {
			return fmt.Errorf("address %d is outside allowed range [%d-%d] for area %s",
				addr.Word, addrRange.Min, addrRange.Max, addr.Area)
		}
		// words only; bit counts stay inside the start word's neighbourhood
		if count > 0 && !addr.IsBit() {
			end := uint32(addr.Word) + uint32(count) - 1
			if end > uint32(addrRange.Max) {
				return fmt.Errorf("operation would access address %d, which exceeds max %d",
					end, addrRange.Max)
			}
		}
		return nil
	}

	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		switch info.Operation {
		case OpRead, OpFill:
			if err := check(info.Address, info.Count); err != nil {
				return nil, err
			}
		case OpWrite:
			if err := check(info.Address, uint16(len(info.Data))); err != nil {
				return nil, err
			}
		case OpTransfer:
			if err := check(info.Address, info.Count); err != nil {
				return nil, err
			}
			for _, dst := range info.Addresses {
				if err := check(dst, info.Count); err != nil {
					return nil, err
				}
			}
		case OpReadMultiple:
			for _, a := range info.Addresses {
				if err := check(a, 1); err != nil {
					return nil, err
				}
			}
		}

		return c.Invoke(nil)
	}
}

// ReadOnlyInterceptor creates an interceptor that blocks every operation
// that changes controller memory or run state.
//
// Example:
//
//	client.SetInterceptor(fins.ReadOnlyInterceptor())
func ReadOnlyInterceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		switch info.Operation {
		case OpWrite, OpFill, OpTransfer, OpRun, OpStop:
			return nil, fmt.Errorf("operation %s is not allowed in read-only mode", info.Operation)
		}

		return c.Invoke(nil)
	}
}
