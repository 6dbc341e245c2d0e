/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package codec

import "math/bits"

// bitsLeadingZeros64 and bitsTrailingZeros64 wrap math/bits so that
// leadingZerosW/trailingZerosW (types.go) compute true 64-bit leading and
// trailing zero counts rather than a 32+32 truncation (spec section 4.3,
// SPEC_FULL section 12 item 4, grounded in original_source's utils_64.rs
// which casts to a full u64 before calling leading_zeros()/trailing_zeros()).
func bitsLeadingZeros64(x uint64) int  { return bits.LeadingZeros64(x) }
func bitsTrailingZeros64(x uint64) int { return bits.TrailingZeros64(x) }
